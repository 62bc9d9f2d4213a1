package main

import (
	"fmt"
	"math/rand"

	"github.com/plus3/framediff/frame"
)

// ChurnSystem rewrites a random subset of entity properties every turn and
// keeps the population stable by spawning as many entities as it deletes.
type ChurnSystem struct {
	Rand       *rand.Rand
	Props      int
	Churn      float64
	CommitRate float64
	Spawn      int
}

func (s *ChurnSystem) populate(entity *frame.Entity) {
	for p := 0; p < s.Props; p++ {
		entity.Set(propKey(p), s.Rand.Intn(100))
	}
}

func (s *ChurnSystem) Execute(uf *frame.UpdateFrame) {
	ids := uf.Registry.Ids()
	if len(ids) == 0 {
		return
	}

	writes := int(float64(len(ids)) * s.Churn)
	for i := 0; i < writes; i++ {
		id := ids[s.Rand.Intn(len(ids))]
		entity, ok := uf.Registry.Get(id)
		if !ok {
			continue
		}
		entity.Set(propKey(s.Rand.Intn(s.Props)), s.Rand.Intn(100))

		if s.Rand.Float64() < s.CommitRate {
			uf.Commands.Commit(frame.FrameTime(s.Rand.Float64()), s.Rand.Intn(10) == 0, id)
		}
	}

	for i := 0; i < s.Spawn; i++ {
		uf.Commands.Delete(ids[s.Rand.Intn(len(ids))])

		props := make(map[string]any, s.Props)
		for p := 0; p < s.Props; p++ {
			props[propKey(p)] = s.Rand.Intn(100)
		}
		uf.Commands.Spawn(props)
	}
}

var propKeys []string

func propKey(p int) string {
	for len(propKeys) <= p {
		propKeys = append(propKeys, fmt.Sprintf("p%d", len(propKeys)))
	}
	return propKeys[p]
}
