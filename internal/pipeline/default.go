package pipeline

import (
	"time"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
	"github.com/roach88/pipesim/internal/render"
)

// Component ids of the default pipeline.
const (
	ActorID     = "actor-1"
	InboundID   = "pipe-1"
	ProcessorID = "processor-1"
	OutboundID  = "pipe-2"
	SinkID      = "sink-1"
	SensorID    = "sensor-1"
)

// Scene size of the default layout, in grid cells.
const (
	SceneWidth  = 32
	SceneHeight = 5
)

const ms = time.Millisecond

// Default returns the canonical pipeline topology.
func Default() *Topology {
	return &Topology{
		Name:     "default",
		Families: fsm.Families(),
		Components: []ComponentSpec{
			{ID: SensorID, Family: fsm.FamilySensor, X: 2, Y: 0},
			{ID: ActorID, Family: fsm.FamilyActor, X: 2, Y: 2},
			{ID: InboundID, Family: fsm.FamilyBuffer, X: 8, Y: 2},
			{ID: ProcessorID, Family: fsm.FamilyProcessor, X: 14, Y: 2},
			{ID: OutboundID, Family: fsm.FamilyBuffer, X: 20, Y: 2},
			{ID: SinkID, Family: fsm.FamilySink, X: 26, Y: 2},
		},
		Chains:    DefaultChains(),
		SpeedMin:  engine.DefaultSpeedMin,
		SpeedMax:  engine.DefaultSpeedMax,
		Styles:    DefaultStyles(),
		Sheets:    DefaultSheets(),
		Particles: DefaultParticles(),
		Scenarios: DefaultScenarios(),
	}
}

// DefaultChains returns the dependent-event table of the default pipeline.
func DefaultChains() engine.ChainTable {
	self := engine.SelfTarget
	return engine.ChainTable{}.
		Add(fsm.FamilyActor, fsm.ActorDelivering,
			engine.ChainRule{Delay: 200 * ms, Target: InboundID, Action: fsm.ActionStartFlow},
			engine.ChainRule{Delay: 500 * ms, Target: ProcessorID, Action: fsm.ActionDataReceived},
			engine.ChainRule{Delay: 1000 * ms, Target: self, Action: fsm.ActionDeliveryComplete},
		).
		Add(fsm.FamilyActor, fsm.ActorReturning,
			engine.ChainRule{Delay: 1000 * ms, Target: self, Action: fsm.ActionReturnComplete},
		).
		Add(fsm.FamilyBuffer, fsm.BufferFlowing,
			engine.ChainRule{Delay: 800 * ms, Target: self, Action: fsm.ActionFlowComplete},
		).
		Add(fsm.FamilyProcessor, fsm.ProcessorReceiving,
			engine.ChainRule{Delay: 300 * ms, Target: self, Action: fsm.ActionStartProcessing},
		).
		Add(fsm.FamilyProcessor, fsm.ProcessorProcessing,
			engine.ChainRule{Delay: 1500 * ms, Target: self, Action: fsm.ActionProcessingComplete},
		).
		Add(fsm.FamilyProcessor, fsm.ProcessorComplete,
			engine.ChainRule{Delay: 200 * ms, Target: OutboundID, Action: fsm.ActionStartFlow},
			engine.ChainRule{Delay: 500 * ms, Target: SinkID, Action: fsm.ActionDataReceived},
			engine.ChainRule{Delay: 1000 * ms, Target: self, Action: fsm.ActionReady},
		).
		Add(fsm.FamilySink, fsm.SinkReceiving,
			engine.ChainRule{Delay: 600 * ms, Target: self, Action: fsm.ActionStoreComplete},
		).
		Add(fsm.FamilySink, fsm.SinkStored,
			engine.ChainRule{Delay: 1000 * ms, Target: self, Action: fsm.ActionReady},
		).
		Add(fsm.FamilySensor, fsm.SensorDetected,
			engine.ChainRule{Delay: 300 * ms, Target: self, Action: fsm.ActionCapture},
		).
		Add(fsm.FamilySensor, fsm.SensorCapturing,
			engine.ChainRule{Delay: 1200 * ms, Target: self, Action: fsm.ActionCaptureComplete},
		)
}

// Sprite sheet names.
const (
	SheetError  = "error"
	SheetPacket = "packet"
)

// DefaultSheets returns the glyph sheets used by the terminal surface.
func DefaultSheets() []render.SpriteSheet {
	return []render.SpriteSheet{
		{Name: "actor-idle", Glyphs: []string{"o"}},
		{Name: "actor-run", Glyphs: []string{">", "»"}},
		{Name: "actor-deliver", Glyphs: []string{"*", "+"}},
		{Name: "actor-return", Glyphs: []string{"<", "«"}},
		{Name: "pipe-idle", Glyphs: []string{"="}},
		{Name: "pipe-flow", Glyphs: []string{"~", "≈"}},
		{Name: "pipe-blocked", Glyphs: []string{"#"}},
		{Name: "cube-idle", Glyphs: []string{"□"}},
		{Name: "cube-busy", Glyphs: []string{"◰", "◳", "◲", "◱"}},
		{Name: "cube-done", Glyphs: []string{"■"}},
		{Name: "store-idle", Glyphs: []string{"○"}},
		{Name: "store-fill", Glyphs: []string{"◔", "◑", "◕"}},
		{Name: "store-full", Glyphs: []string{"●"}},
		{Name: "monitor-off", Glyphs: []string{"."}},
		{Name: "monitor-scan", Glyphs: []string{"◜", "◝", "◞", "◟"}},
		{Name: "monitor-hit", Glyphs: []string{"!"}},
		{Name: SheetError, Glyphs: []string{"x", "X"}},
		{Name: SheetPacket, Glyphs: []string{"·"}},
	}
}

// DefaultStyles maps every default family state to a sheet.
func DefaultStyles() render.StyleTable {
	styles := render.StyleTable{
		styleKey(fsm.FamilyActor, render.AnyState):             {Sheet: "actor-idle"},
		styleKey(fsm.FamilyActor, fsm.ActorRunning):            {Sheet: "actor-run", AnimationSpeed: 1},
		styleKey(fsm.FamilyActor, fsm.ActorDelivering):         {Sheet: "actor-deliver", AnimationSpeed: 2},
		styleKey(fsm.FamilyActor, fsm.ActorReturning):          {Sheet: "actor-return", AnimationSpeed: 1},
		styleKey(fsm.FamilyBuffer, render.AnyState):            {Sheet: "pipe-idle"},
		styleKey(fsm.FamilyBuffer, fsm.BufferFlowing):          {Sheet: "pipe-flow", AnimationSpeed: 2},
		styleKey(fsm.FamilyBuffer, fsm.BufferBlocked):          {Sheet: "pipe-blocked"},
		styleKey(fsm.FamilyProcessor, render.AnyState):         {Sheet: "cube-idle"},
		styleKey(fsm.FamilyProcessor, fsm.ProcessorReceiving):  {Sheet: "cube-busy", AnimationSpeed: 0.5},
		styleKey(fsm.FamilyProcessor, fsm.ProcessorProcessing): {Sheet: "cube-busy", AnimationSpeed: 1},
		styleKey(fsm.FamilyProcessor, fsm.ProcessorComplete):   {Sheet: "cube-done"},
		styleKey(fsm.FamilySink, render.AnyState):              {Sheet: "store-idle"},
		styleKey(fsm.FamilySink, fsm.SinkReceiving):            {Sheet: "store-fill", AnimationSpeed: 1},
		styleKey(fsm.FamilySink, fsm.SinkStored):               {Sheet: "store-full"},
		styleKey(fsm.FamilySensor, render.AnyState):            {Sheet: "monitor-off"},
		styleKey(fsm.FamilySensor, fsm.SensorScanning):         {Sheet: "monitor-scan", AnimationSpeed: 1},
		styleKey(fsm.FamilySensor, fsm.SensorDetected):         {Sheet: "monitor-hit"},
		styleKey(fsm.FamilySensor, fsm.SensorCapturing):        {Sheet: "monitor-scan", AnimationSpeed: 2},
	}
	for _, family := range []string{fsm.FamilyActor, fsm.FamilyBuffer, fsm.FamilyProcessor, fsm.FamilySink, fsm.FamilySensor} {
		styles[styleKey(family, fsm.StateError)] = render.Style{Sheet: SheetError}
	}
	return styles
}

func styleKey(family string, state fsm.State) render.StyleKey {
	return render.StyleKey{Family: family, State: state}
}

// DefaultParticles spawns packets along a buffer while it flows.
func DefaultParticles() map[string][]render.ParticleRule {
	return map[string][]render.ParticleRule{
		fsm.FamilyBuffer: {{
			State:   fsm.BufferFlowing,
			Sheet:   SheetPacket,
			Count:   3,
			TTL:     800 * ms,
			VX:      5,
			Spacing: 1,
			Z:       10,
		}},
	}
}

// DefaultScenarios returns the built-in scenarios.
func DefaultScenarios() []engine.Scenario {
	return []engine.Scenario{
		{
			Name:        "single-delivery",
			Description: "One actor run pushes a packet through every stage",
			Duration:    6 * time.Second,
			Events: []engine.ScenarioEvent{
				{Delay: 0, Component: ActorID, Action: fsm.ActionStartRun},
				{Delay: 1000 * ms, Component: ActorID, Action: fsm.ActionReachTarget},
			},
		},
		{
			Name:        "double-delivery",
			Description: "Two back-to-back actor runs",
			Duration:    11 * time.Second,
			Events: []engine.ScenarioEvent{
				{Delay: 0, Component: ActorID, Action: fsm.ActionStartRun},
				{Delay: 1000 * ms, Component: ActorID, Action: fsm.ActionReachTarget},
				{Delay: 3500 * ms, Component: ActorID, Action: fsm.ActionStartRun},
				{Delay: 4500 * ms, Component: ActorID, Action: fsm.ActionReachTarget},
			},
		},
		{
			Name:        "capture",
			Description: "A monitor detects a device and captures while an actor delivers",
			Duration:    8 * time.Second,
			Events: []engine.ScenarioEvent{
				{Delay: 0, Component: SensorID, Action: fsm.ActionActivate},
				{Delay: 500 * ms, Component: SensorID, Action: fsm.ActionDetect, Payload: fsm.Payload{"device": "capture-0"}},
				{Delay: 2000 * ms, Component: ActorID, Action: fsm.ActionStartRun},
				{Delay: 2500 * ms, Component: SensorID, Action: fsm.ActionDeactivate},
				{Delay: 3000 * ms, Component: ActorID, Action: fsm.ActionReachTarget},
			},
		},
		{
			Name:        "blocked-pipe",
			Description: "The inbound pipe blocks mid-flow; its completion is dropped until unblocked",
			Duration:    6 * time.Second,
			Events: []engine.ScenarioEvent{
				{Delay: 0, Component: ActorID, Action: fsm.ActionStartRun},
				{Delay: 1000 * ms, Component: ActorID, Action: fsm.ActionReachTarget},
				{Delay: 1300 * ms, Component: InboundID, Action: fsm.ActionBlock},
				{Delay: 2500 * ms, Component: InboundID, Action: fsm.ActionUnblock},
			},
		},
		{
			Name:        "fault-recovery",
			Description: "The processor faults and is reset",
			Duration:    2 * time.Second,
			Events: []engine.ScenarioEvent{
				{Delay: 0, Component: ProcessorID, Action: fsm.ActionError, Payload: fsm.Payload{"reason": "overheated"}},
				{Delay: 500 * ms, Component: ProcessorID, Action: fsm.ActionReset},
			},
		},
	}
}
