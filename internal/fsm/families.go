package fsm

// Component family names.
const (
	FamilyActor     = "actor"
	FamilyBuffer    = "buffer"
	FamilyProcessor = "processor"
	FamilySink      = "sink"
	FamilySensor    = "sensor"
)

// Actor states and actions (the "mover" carrying captured data).
const (
	ActorWaiting    State = "WAITING"
	ActorRunning    State = "RUNNING"
	ActorDelivering State = "DELIVERING"
	ActorReturning  State = "RETURNING"

	ActionStartRun         Action = "START_RUN"
	ActionReachTarget      Action = "REACH_TARGET"
	ActionDeliveryComplete Action = "DELIVERY_COMPLETE"
	ActionReturnComplete   Action = "RETURN_COMPLETE"
)

// Buffer states and actions (the "pipe" between stages).
const (
	BufferIdle    State = "IDLE"
	BufferFlowing State = "FLOWING"
	BufferBlocked State = "BLOCKED"

	ActionStartFlow    Action = "START_FLOW"
	ActionFlowComplete Action = "FLOW_COMPLETE"
	ActionBlock        Action = "BLOCK"
	ActionUnblock      Action = "UNBLOCK"
)

// Processor states and actions (the "cube" transforming data).
const (
	ProcessorIdle       State = "IDLE"
	ProcessorReceiving  State = "RECEIVING"
	ProcessorProcessing State = "PROCESSING"
	ProcessorComplete   State = "COMPLETE"

	ActionDataReceived       Action = "DATA_RECEIVED"
	ActionStartProcessing    Action = "START_PROCESSING"
	ActionProcessingComplete Action = "PROCESSING_COMPLETE"
	ActionReady              Action = "READY"
)

// Sink states and actions (the "store" at the end of the pipeline).
const (
	SinkIdle      State = "IDLE"
	SinkReceiving State = "RECEIVING"
	SinkStored    State = "STORED"

	ActionStoreComplete Action = "STORE_COMPLETE"
)

// Sensor states and actions (the capture "monitor").
const (
	SensorInactive  State = "INACTIVE"
	SensorScanning  State = "SCANNING"
	SensorDetected  State = "DETECTED"
	SensorCapturing State = "CAPTURING"

	ActionActivate        Action = "ACTIVATE"
	ActionDeactivate      Action = "DEACTIVATE"
	ActionDetect          Action = "DETECT"
	ActionCapture         Action = "CAPTURE"
	ActionCaptureComplete Action = "CAPTURE_COMPLETE"
)

// Actor returns a fresh actor definition.
func Actor() *Definition {
	return NewBuilder(FamilyActor, ActorWaiting).
		Transition(ActorWaiting, ActionStartRun, ActorRunning).
		Transition(ActorRunning, ActionReachTarget, ActorDelivering).
		Transition(ActorDelivering, ActionDeliveryComplete, ActorReturning).
		Transition(ActorReturning, ActionReturnComplete, ActorWaiting).
		Animated(ActorRunning, ActorDelivering, ActorReturning).
		MustBuild()
}

// Buffer returns a fresh buffer definition.
func Buffer() *Definition {
	return NewBuilder(FamilyBuffer, BufferIdle).
		Transition(BufferIdle, ActionStartFlow, BufferFlowing).
		Transition(BufferFlowing, ActionFlowComplete, BufferIdle).
		Transition(BufferFlowing, ActionBlock, BufferBlocked).
		Transition(BufferBlocked, ActionUnblock, BufferFlowing).
		Animated(BufferFlowing).
		MustBuild()
}

// Processor returns a fresh processor definition.
func Processor() *Definition {
	return NewBuilder(FamilyProcessor, ProcessorIdle).
		Transition(ProcessorIdle, ActionDataReceived, ProcessorReceiving).
		Transition(ProcessorReceiving, ActionStartProcessing, ProcessorProcessing).
		Transition(ProcessorProcessing, ActionProcessingComplete, ProcessorComplete).
		Transition(ProcessorComplete, ActionReady, ProcessorIdle).
		Animated(ProcessorReceiving, ProcessorProcessing).
		MustBuild()
}

// Sink returns a fresh sink definition.
func Sink() *Definition {
	return NewBuilder(FamilySink, SinkIdle).
		Transition(SinkIdle, ActionDataReceived, SinkReceiving).
		Transition(SinkReceiving, ActionStoreComplete, SinkStored).
		Transition(SinkStored, ActionReady, SinkIdle).
		Animated(SinkReceiving).
		MustBuild()
}

// Sensor returns a fresh sensor definition.
func Sensor() *Definition {
	return NewBuilder(FamilySensor, SensorInactive).
		Transition(SensorInactive, ActionActivate, SensorScanning).
		Transition(SensorScanning, ActionDetect, SensorDetected).
		Transition(SensorScanning, ActionDeactivate, SensorInactive).
		Transition(SensorDetected, ActionCapture, SensorCapturing).
		Transition(SensorCapturing, ActionCaptureComplete, SensorScanning).
		Animated(SensorScanning, SensorCapturing).
		MustBuild()
}

// Families returns fresh definitions for every built-in family, keyed by name.
func Families() map[string]*Definition {
	return map[string]*Definition{
		FamilyActor:     Actor(),
		FamilyBuffer:    Buffer(),
		FamilyProcessor: Processor(),
		FamilySink:      Sink(),
		FamilySensor:    Sensor(),
	}
}
