// Package requestid issues short opaque identifiers for inbound requests.
package requestid

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/sqids/sqids-go"
)

const minLength = 8

type Generator struct {
	sqids *sqids.Sqids
	epoch uint64
	seq   atomic.Uint64
}

// New returns a generator whose ids encode epoch and a per-process sequence,
// so ids stay unique across restarts as long as epoch differs.
func New(epoch uint64) (*Generator, error) {
	s, err := sqids.New(sqids.Options{
		MinLength: minLength,
	})
	if err != nil {
		return nil, err
	}
	return &Generator{sqids: s, epoch: epoch}, nil
}

func (g *Generator) Next() string {
	n := g.seq.Add(1) - 1
	id, err := g.sqids.Encode([]uint64{g.epoch, n})
	if err != nil {
		return strconv.FormatUint(g.epoch, 36) + "-" + strconv.FormatUint(n, 36)
	}
	return id
}

type ctxKey struct{}

func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
