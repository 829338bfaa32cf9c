package runid

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ID identifies one solve run in logs and in the run archive.
type ID string

type Provider interface {
	NextRunID() ID
}

var _ Provider = &UUIDProvider{}

type UUIDProviderFn func() (uuid.UUID, error)

// UUIDProvider hands out random UUIDs.
type UUIDProvider struct {
	nextUUIDFn UUIDProviderFn
}

func NewUUIDProvider() *UUIDProvider {
	return &UUIDProvider{
		nextUUIDFn: func() (uuid.UUID, error) { return uuid.NewRandom() },
	}
}

func NewCustomUUIDProvider(nextUUIDFn UUIDProviderFn) *UUIDProvider {
	return &UUIDProvider{
		nextUUIDFn: nextUUIDFn,
	}
}

// NextRunID falls back to a time based id when no UUID can be generated.
func (p *UUIDProvider) NextRunID() ID {
	id, err := p.nextUUIDFn()
	if err != nil {
		return ID(fmt.Sprintf("run-%d", time.Now().UnixNano()))
	}
	return ID(id.String())
}

var _ Provider = &CountingProvider{}

// CountingProvider hands out "1", "2", ... and is meant for tests and
// reproducible output.
type CountingProvider struct {
	id int64
}

func (c *CountingProvider) NextRunID() ID {
	return ID(strconv.FormatInt(atomic.AddInt64(&c.id, 1), 10))
}
