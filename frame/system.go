package frame

// System represents a behavior that runs once per turn. Systems write entity
// properties and queue commits through the frame's Commands; they can keep
// custom state fields that persist between turns.
type System interface {
	Execute(frame *UpdateFrame)
}
