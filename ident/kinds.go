package ident

// The concrete entity kinds identified throughout the sound and
// expression graphs. Each is an empty struct used only as a type
// parameter to ID[K]; none of them are ever instantiated.

type ProcessorKind struct{}

func (ProcessorKind) kindName() string { return "Processor" }

// ProcessorID identifies a sound processor within a sound graph.
type ProcessorID = ID[ProcessorKind]

type InputKind struct{}

func (InputKind) kindName() string { return "Input" }

// InputID identifies a sound input within its owning processor.
type InputID = ID[InputKind]

type ExpressionKind struct{}

func (ExpressionKind) kindName() string { return "Expression" }

// ExpressionID identifies a processor expression within its owning
// processor.
type ExpressionID = ID[ExpressionKind]

type ArgumentKind struct{}

func (ArgumentKind) kindName() string { return "Argument" }

// ArgumentID identifies a processor argument within its owning processor.
type ArgumentID = ID[ArgumentKind]

type NodeKind struct{}

func (NodeKind) kindName() string { return "Node" }

// NodeID identifies an expression node within an expression graph.
type NodeID = ID[NodeKind]

type NodeInputKind struct{}

func (NodeInputKind) kindName() string { return "NodeInput" }

// NodeInputID identifies an expression node's own input slot.
type NodeInputID = ID[NodeInputKind]

type ParameterKind struct{}

func (ParameterKind) kindName() string { return "Parameter" }

// ParameterID identifies a graph parameter of an expression graph.
type ParameterID = ID[ParameterKind]

type ResultKind struct{}

func (ResultKind) kindName() string { return "Result" }

// ResultID identifies a graph result of an expression graph.
type ResultID = ID[ResultKind]
