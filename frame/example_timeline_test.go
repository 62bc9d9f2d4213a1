package frame_test

import (
	"fmt"

	"github.com/plus3/framediff/frame"
)

// ExampleTimeline demonstrates a turn with an intermediate commit. Entities that
// are not committed explicitly are committed at the end of the turn, and each
// frame only carries what changed since the previous one.
func ExampleTimeline() {
	registry := frame.NewRegistry()
	ball := registry.Create().Set("x", 0).Set("color", "red")
	tl := frame.NewTimeline(registry)

	tl.Advance()

	ball.Set("x", 5)
	if err := tl.CommitEntity(0.5, false, ball.Id()); err != nil {
		fmt.Println(err)
	}
	ball.Set("x", 10).Set("color", "red")

	for _, diff := range tl.Advance() {
		for id, bag := range diff.All() {
			for key, value := range bag.All() {
				fmt.Printf("t=%s entity %d %s=%v\n", diff.Time(), id, key, value)
			}
		}
	}

	// Output:
	// t=0.5 entity 1 x=5
	// t=1 entity 1 x=10
}
