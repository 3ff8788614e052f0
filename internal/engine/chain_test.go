package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/pipesim/internal/fsm"
)

func TestChainTable_RulesInOrder(t *testing.T) {
	table := ChainTable{}.
		Add(fsm.FamilyActor, fsm.ActorDelivering, ChainRule{Target: "a", Action: "X"}).
		Add(fsm.FamilyActor, fsm.ActorDelivering, ChainRule{Target: "b", Action: "Y"})

	rules := table.Rules(fsm.FamilyActor, fsm.ActorDelivering)
	assert.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].Target)
	assert.Equal(t, "b", rules[1].Target)
	assert.Empty(t, table.Rules(fsm.FamilyActor, fsm.ActorRunning))
}

func TestChainTable_KeysSorted(t *testing.T) {
	table := ChainTable{}.
		Add("sink", "STORED").
		Add("actor", "RETURNING").
		Add("actor", "DELIVERING")

	assert.Equal(t, []ChainKey{
		{Family: "actor", State: "DELIVERING"},
		{Family: "actor", State: "RETURNING"},
		{Family: "sink", State: "STORED"},
	}, table.Keys())
}

func TestChainTable_CloneIsDeep(t *testing.T) {
	table := ChainTable{}.Add("buffer", "FLOWING", ChainRule{Action: "A", Payload: fsm.Payload{"k": 1}})
	clone := table.Clone()

	clone[ChainKey{"buffer", "FLOWING"}][0].Payload["k"] = 2
	clone.Add("buffer", "FLOWING", ChainRule{Action: "B"})

	assert.Equal(t, 1, table.Rules("buffer", "FLOWING")[0].Payload["k"])
	assert.Len(t, table.Rules("buffer", "FLOWING"), 1)
}

func TestChainRule_Resolve(t *testing.T) {
	assert.Equal(t, "src", ChainRule{Target: SelfTarget}.resolve("src"))
	assert.Equal(t, "src", ChainRule{}.resolve("src"))
	assert.Equal(t, "pipe-1", ChainRule{Target: "pipe-1"}.resolve("src"))
}

func TestChainRule_PayloadDoesNotAliasRule(t *testing.T) {
	rule := ChainRule{Payload: fsm.Payload{"lane": 1}}
	p := rule.chainPayload("actor-1", fsm.ActorDelivering)
	p["lane"] = 9

	assert.Equal(t, 1, rule.Payload["lane"])
	assert.Equal(t, "actor-1", p["cause"])
	assert.Equal(t, "DELIVERING", p["causeState"])
}
