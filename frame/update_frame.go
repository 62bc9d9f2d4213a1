package frame

type UpdateFrame struct {
	Turn      int
	DeltaTime float64
	Commands  *Commands
	Registry  *Registry
}

func newUpdateFrame(turn int, dt float64, registry *Registry) *UpdateFrame {
	return &UpdateFrame{
		Turn:      turn,
		DeltaTime: dt,
		Commands:  newCommands(),
		Registry:  registry,
	}
}
