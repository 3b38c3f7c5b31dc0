package domain

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// OrderNumberGenerator produces ids like ORD241019042: prefix, YYMMDD and a
// three digit random suffix. Collisions are possible; uniqueness is enforced
// by the store and handled by retrying with a fresh number.
type OrderNumberGenerator struct {
	prefix string
	now    func() time.Time
	intn   func(n int) int
}

func NewOrderNumberGenerator(prefix string) *OrderNumberGenerator {
	return &OrderNumberGenerator{prefix: prefix, now: time.Now, intn: rand.IntN}
}

func (g *OrderNumberGenerator) Next() string {
	return fmt.Sprintf("%s%s%03d", g.prefix, g.now().Format("060102"), g.intn(1000))
}
