package solve_test

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/bnb/cmd/solve"
	"github.com/operator-framework/bnb/internal/archive"
	"github.com/operator-framework/bnb/pkg/bnb"
)

func TestSolve(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Solve Suite")
}

const example = `c
c the example of the solve command
p mip 3 1
v a bin 0 1 -5
v b bin 0 1 -4
v c int 0 3 -3
r size -inf 5 a:2 b:3 c:1
`

var _ = Describe("MIP", func() {
	It("should fail if there is no header", func() {
		_, err := solve.ParseMIP(strings.NewReader("v a bin 0 1 1\n"))
		Expect(err).To(HaveOccurred())
	})
	It("should fail if the header does not match", func() {
		_, err := solve.ParseMIP(strings.NewReader("p mip 2 0\nv a bin 0 1 1\n"))
		Expect(err).To(MatchError(ContainSubstring("declares 2 variables")))
		_, err = solve.ParseMIP(strings.NewReader("p mip 1 1\nv a bin 0 1 1\n"))
		Expect(err).To(MatchError(ContainSubstring("declares 1 rows")))
	})
	It("should fail on unknown variables", func() {
		_, err := solve.ParseMIP(strings.NewReader("p mip 1 1\nv a bin 0 1 1\nr r1 0 1 b:1\n"))
		Expect(err).To(MatchError(ContainSubstring("unknown variable (b)")))
	})
	It("should fail on duplicate variables", func() {
		_, err := solve.ParseMIP(strings.NewReader("p mip 2 0\nv a bin 0 1 1\nv a int 0 1 1\n"))
		Expect(err).To(MatchError(ContainSubstring("duplicate variable a")))
	})
	It("should fail on bad numbers and types", func() {
		_, err := solve.ParseMIP(strings.NewReader("p mip 1 0\nv a bin 0 one 1\n"))
		Expect(err).To(MatchError(ContainSubstring("invalid number (one)")))
		_, err = solve.ParseMIP(strings.NewReader("p mip 1 0\nv a real 0 1 1\n"))
		Expect(err).To(MatchError(ContainSubstring("unknown variable type (real)")))
		_, err = solve.ParseMIP(strings.NewReader("p mip 1 0\nv a cont 0 nan 1\n"))
		Expect(err).To(HaveOccurred())
	})
	It("should fail on malformed terms", func() {
		_, err := solve.ParseMIP(strings.NewReader("p mip 1 1\nv a bin 0 1 1\nr r1 0 1 a=1\n"))
		Expect(err).To(MatchError(ContainSubstring("invalid term (a=1)")))
	})
	It("should parse valid mip", func() {
		p, err := solve.ParseMIP(strings.NewReader(example))
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Vars).To(Equal([]bnb.Var{
			{Name: "a", Type: bnb.Binary, LB: 0, UB: 1, Obj: -5},
			{Name: "b", Type: bnb.Binary, LB: 0, UB: 1, Obj: -4},
			{Name: "c", Type: bnb.Integer, LB: 0, UB: 3, Obj: -3},
		}))
		Expect(p.Rows).To(HaveLen(1))
		Expect(p.Rows[0].Name).To(Equal("size"))
		Expect(math.IsInf(p.Rows[0].LHS, -1)).To(BeTrue())
		Expect(p.Rows[0].RHS).To(Equal(5.0))
		Expect(p.Rows[0].Coefs).To(Equal([]bnb.Coef{{Var: 0, Val: 2}, {Var: 1, Val: 3}, {Var: 2, Val: 1}}))
	})
	It("should accept infinite bounds", func() {
		p, err := solve.ParseMIP(strings.NewReader("p mip 1 0\nv z cont -inf inf 0\n"))
		Expect(err).ToNot(HaveOccurred())
		Expect(math.IsInf(p.Vars[0].LB, -1)).To(BeTrue())
		Expect(math.IsInf(p.Vars[0].UB, 1)).To(BeTrue())
	})
})

var _ = Describe("Run", func() {
	var p *bnb.Problem

	BeforeEach(func() {
		var err error
		p, err = solve.ParseMIP(strings.NewReader(example))
		Expect(err).ToNot(HaveOccurred())
		p.Name = "example"
	})

	It("should print the optimal assignment", func() {
		var out, errOut bytes.Buffer
		Expect(solve.Run(context.Background(), &out, &errOut, p, &solve.Flags{NodeLimit: -1})).To(Succeed())
		Expect(out.String()).To(ContainSubstring("status:    optimal\n"))
		Expect(out.String()).To(ContainSubstring("objective: -14\n"))
		Expect(out.String()).To(ContainSubstring("a = 1\nc = 3\n"))
		Expect(out.String()).ToNot(ContainSubstring("b = "))
		Expect(errOut.String()).To(BeEmpty())
	})

	It("should print search events when tracing", func() {
		var out, errOut bytes.Buffer
		Expect(solve.Run(context.Background(), &out, &errOut, p, &solve.Flags{NodeLimit: -1, Trace: true})).To(Succeed())
		Expect(errOut.String()).To(ContainSubstring("node-focused"))
		Expect(errOut.String()).To(ContainSubstring("best-solution-found"))
	})

	It("should record the run in the archive", func() {
		path := filepath.Join(GinkgoT().TempDir(), "runs.db")
		var out bytes.Buffer
		Expect(solve.Run(context.Background(), &out, &out, p, &solve.Flags{NodeLimit: -1, Archive: path})).To(Succeed())

		a, err := archive.Open(path)
		Expect(err).ToNot(HaveOccurred())
		defer a.Close()
		runs, err := a.Runs(context.Background(), "example")
		Expect(err).ToNot(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].Status).To(Equal("optimal"))
		Expect(runs[0].Objective).To(BeNumerically("~", -14, 1e-6))
		Expect(runs[0].Solution).To(HaveLen(3))
	})

	It("should reject a missing settings file", func() {
		var out bytes.Buffer
		err := solve.Run(context.Background(), &out, &out, p, &solve.Flags{NodeLimit: -1, Config: "does-not-exist.yaml"})
		Expect(err).To(HaveOccurred())
	})
})
