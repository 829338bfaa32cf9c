package solve

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/operator-framework/bnb/pkg/bnb"
)

var (
	commentLine = regexp.MustCompile(`^c(\s.*)?$`)
	headerLine  = regexp.MustCompile(`^p\s+mip\s+(\d+)\s+(\d+)$`)
	coefTerm    = regexp.MustCompile(`^([^:\s]+):(\S+)$`)
)

var varTypes = map[string]bnb.VarType{
	"bin":  bnb.Binary,
	"int":  bnb.Integer,
	"cont": bnb.Continuous,
}

// ParseMIP reads a problem in the line based mip format:
//
//	c comment
//	p mip <vars> <rows>
//	v <name> <bin|int|cont> <lb> <ub> <obj>
//	r <name> <lhs> <rhs> <var>:<coef> ...
//
// Bounds and sides may be inf or -inf.
func ParseMIP(r io.Reader) (*bnb.Problem, error) {
	scanner := bufio.NewScanner(r)
	p := &bnb.Problem{}
	index := map[string]int{}
	header := false
	nVars, nRows := 0, 0

	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || commentLine.MatchString(line) {
			continue
		}

		if m := headerLine.FindStringSubmatch(line); m != nil {
			if header {
				return nil, fmt.Errorf("line %d: duplicate header", n)
			}
			nVars, _ = strconv.Atoi(m[1])
			nRows, _ = strconv.Atoi(m[2])
			header = true
			continue
		}
		if !header {
			return nil, fmt.Errorf("line %d: statement (%s) before header. Valid header is p mip <vars> <rows>", n, line)
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseVar(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			if _, ok := index[v.Name]; ok {
				return nil, fmt.Errorf("line %d: duplicate variable %s", n, v.Name)
			}
			index[v.Name] = len(p.Vars)
			p.Vars = append(p.Vars, v)
		case "r":
			row, err := parseRow(fields, index)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			p.Rows = append(p.Rows, row)
		default:
			return nil, fmt.Errorf("line %d: invalid statement (%s)", n, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading mip data: %w", err)
	}

	if !header {
		return nil, fmt.Errorf("missing header p mip <vars> <rows>")
	}
	if len(p.Vars) != nVars {
		return nil, fmt.Errorf("header declares %d variables, found %d", nVars, len(p.Vars))
	}
	if len(p.Rows) != nRows {
		return nil, fmt.Errorf("header declares %d rows, found %d", nRows, len(p.Rows))
	}
	return p, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("invalid number (%s)", s)
	}
	return v, nil
}

func parseVar(fields []string) (bnb.Var, error) {
	if len(fields) != 6 {
		return bnb.Var{}, fmt.Errorf("invalid variable (%s). Valid format is v <name> <bin|int|cont> <lb> <ub> <obj>", strings.Join(fields, " "))
	}
	t, ok := varTypes[fields[2]]
	if !ok {
		return bnb.Var{}, fmt.Errorf("unknown variable type (%s)", fields[2])
	}
	v := bnb.Var{Name: fields[1], Type: t}
	var err error
	if v.LB, err = parseNumber(fields[3]); err != nil {
		return bnb.Var{}, err
	}
	if v.UB, err = parseNumber(fields[4]); err != nil {
		return bnb.Var{}, err
	}
	if v.Obj, err = parseNumber(fields[5]); err != nil {
		return bnb.Var{}, err
	}
	return v, nil
}

func parseRow(fields []string, index map[string]int) (bnb.Row, error) {
	if len(fields) < 4 {
		return bnb.Row{}, fmt.Errorf("invalid row (%s). Valid format is r <name> <lhs> <rhs> <var>:<coef> ...", strings.Join(fields, " "))
	}
	row := bnb.Row{Name: fields[1]}
	var err error
	if row.LHS, err = parseNumber(fields[2]); err != nil {
		return bnb.Row{}, err
	}
	if row.RHS, err = parseNumber(fields[3]); err != nil {
		return bnb.Row{}, err
	}
	for _, term := range fields[4:] {
		m := coefTerm.FindStringSubmatch(term)
		if m == nil {
			return bnb.Row{}, fmt.Errorf("invalid term (%s) in row %s", term, row.Name)
		}
		j, ok := index[m[1]]
		if !ok {
			return bnb.Row{}, fmt.Errorf("unknown variable (%s) in row %s", m[1], row.Name)
		}
		val, err := parseNumber(m[2])
		if err != nil {
			return bnb.Row{}, err
		}
		row.Coefs = append(row.Coefs, bnb.Coef{Var: j, Val: val})
	}
	return row, nil
}
