package pipeline

import (
	"fmt"

	"github.com/roach88/pipesim/internal/engine"
	"github.com/roach88/pipesim/internal/fsm"
)

// Validation error codes (E100-E199)
const (
	// Families (E100-E109)
	ErrNoFamilies     = "E100" // at least one family required
	ErrConvention     = "E101" // table violates the ERROR/RESET convention
	ErrFamilyMismatch = "E102" // map key differs from definition family

	// Components (E110-E119)
	ErrNoComponents       = "E110" // at least one component required
	ErrComponentIDEmpty   = "E111" // component id is required
	ErrDuplicateComponent = "E112" // duplicate component id
	ErrUnknownFamily      = "E113" // component references an undefined family

	// Chains (E120-E129)
	ErrChainFamily = "E120" // chain trigger family undefined
	ErrChainState  = "E121" // chain trigger state not in family
	ErrChainTarget = "E122" // chain target is not a component
	ErrChainAction = "E123" // target family never accepts the action
	ErrChainDelay  = "E124" // negative chain delay

	// Engine settings (E130-E139)
	ErrSpeedRange = "E130" // speed bounds invalid

	// Scenarios (E140-E149)
	ErrScenarioInvalid   = "E140" // scenario fails basic validation
	ErrDuplicateScenario = "E141" // duplicate scenario name
	ErrScenarioTarget    = "E142" // scenario event targets unknown component
	ErrScenarioAction    = "E143" // scenario action not accepted by family
)

// ValidationError represents a topology validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the topology for structural errors.
// Returns all errors found (does not fail-fast).
func Validate(t *Topology) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateFamilies(t)...)
	errs = append(errs, validateComponents(t)...)
	errs = append(errs, validateChains(t)...)
	errs = append(errs, validateSpeed(t)...)
	errs = append(errs, validateScenarios(t)...)
	return errs
}

func validateFamilies(t *Topology) []ValidationError {
	if len(t.Families) == 0 {
		return []ValidationError{{
			Field:   "families",
			Message: "at least one family is required",
			Code:    ErrNoFamilies,
		}}
	}

	var errs []ValidationError
	for _, name := range t.FamilyNames() {
		def := t.Families[name]
		field := fmt.Sprintf("families.%s", name)
		if def.Family() != name {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("definition is for family %q", def.Family()),
				Code:    ErrFamilyMismatch,
			})
		}
		if err := def.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
				Code:    ErrConvention,
			})
		}
	}
	return errs
}

func validateComponents(t *Topology) []ValidationError {
	if len(t.Components) == 0 {
		return []ValidationError{{
			Field:   "components",
			Message: "at least one component is required",
			Code:    ErrNoComponents,
		}}
	}

	var errs []ValidationError
	seen := make(map[string]bool)
	for i, c := range t.Components {
		field := fmt.Sprintf("components[%d]", i)
		if c.ID == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: "id is required",
				Code:    ErrComponentIDEmpty,
			})
		} else if seen[c.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate component id: %q", c.ID),
				Code:    ErrDuplicateComponent,
			})
		}
		seen[c.ID] = true

		if _, ok := t.Families[c.Family]; !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".family",
				Message: fmt.Sprintf("undefined family %q", c.Family),
				Code:    ErrUnknownFamily,
			})
		}
	}
	return errs
}

func validateChains(t *Topology) []ValidationError {
	var errs []ValidationError
	for _, key := range t.Chains.Keys() {
		field := fmt.Sprintf("chains.%s.%s", key.Family, key.State)

		def, ok := t.Families[key.Family]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("undefined family %q", key.Family),
				Code:    ErrChainFamily,
			})
			continue
		}
		if !def.HasState(key.State) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("family %q has no state %q", key.Family, key.State),
				Code:    ErrChainState,
			})
		}

		for i, rule := range t.Chains.Rules(key.Family, key.State) {
			errs = append(errs, validateRule(t, key, def, fmt.Sprintf("%s[%d]", field, i), rule)...)
		}
	}
	return errs
}

func validateRule(t *Topology, key engine.ChainKey, source *fsm.Definition, field string, rule engine.ChainRule) []ValidationError {
	var errs []ValidationError
	if rule.Delay < 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".delay",
			Message: "delay must not be negative",
			Code:    ErrChainDelay,
		})
	}

	target := source
	if rule.Target != "" && rule.Target != engine.SelfTarget {
		c, ok := t.Component(rule.Target)
		if !ok {
			return append(errs, ValidationError{
				Field:   field + ".target",
				Message: fmt.Sprintf("undefined component %q", rule.Target),
				Code:    ErrChainTarget,
			})
		}
		if target, ok = t.Families[c.Family]; !ok {
			return errs
		}
	}

	if !target.AcceptsAnywhere(rule.Action) {
		errs = append(errs, ValidationError{
			Field:   field + ".action",
			Message: fmt.Sprintf("family %q never accepts %s", target.Family(), rule.Action),
			Code:    ErrChainAction,
		})
	}
	return errs
}

func validateSpeed(t *Topology) []ValidationError {
	if t.SpeedMin < 0 || t.SpeedMax < 0 || (t.SpeedMax > 0 && t.SpeedMax < t.SpeedMin) {
		return []ValidationError{{
			Field:   "speed",
			Message: fmt.Sprintf("invalid range [%g, %g]", t.SpeedMin, t.SpeedMax),
			Code:    ErrSpeedRange,
		}}
	}
	return nil
}

func validateScenarios(t *Topology) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, s := range t.Scenarios {
		field := fmt.Sprintf("scenarios[%d]", i)
		if err := s.Validate(); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error(), Code: ErrScenarioInvalid})
			continue
		}
		if seen[s.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate scenario name: %q", s.Name),
				Code:    ErrDuplicateScenario,
			})
		}
		seen[s.Name] = true

		for j, ev := range s.Events {
			evField := fmt.Sprintf("%s.events[%d]", field, j)
			c, ok := t.Component(ev.Component)
			if !ok {
				errs = append(errs, ValidationError{
					Field:   evField + ".component",
					Message: fmt.Sprintf("undefined component %q", ev.Component),
					Code:    ErrScenarioTarget,
				})
				continue
			}
			if def, ok := t.Families[c.Family]; ok && !def.AcceptsAnywhere(ev.Action) {
				errs = append(errs, ValidationError{
					Field:   evField + ".action",
					Message: fmt.Sprintf("family %q never accepts %s", c.Family, ev.Action),
					Code:    ErrScenarioAction,
				})
			}
		}
	}
	return errs
}
