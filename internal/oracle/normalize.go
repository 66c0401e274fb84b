// internal/oracle/normalize.go
package oracle

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/llmutil"
)

// ErrOracleParse reports that no action could be extracted from the planning
// oracle's response.
var ErrOracleParse = errors.New("could not extract an action from oracle response")

// listKeys are the wrapper keys models reach for when they ignore the
// one-action instruction. Probed in order; the first present key wins.
var listKeys = []string{"steps", "actions", "plan"}

// NormalizeAction recovers a single valid action from a planner response. The
// model is told to return one bare action object, but real responses drift:
// the object arrives wrapped in "steps"/"actions"/"plan" lists, or as a
// top-level array. Shapes are probed in a fixed order and the first action
// found is taken; multi-step plans are deliberately collapsed to their first
// step, since the loop re-plans after every action anyway.
func NormalizeAction(response string) (schemas.Action, error) {
	payload := strings.TrimSpace(llmutil.ExtractJSON(response))

	switch {
	case strings.HasPrefix(payload, "{"):
		var probe map[string]jsoniter.RawMessage
		if err := json.Unmarshal([]byte(payload), &probe); err != nil {
			return schemas.Action{}, fmt.Errorf("%w: %v", ErrOracleParse, err)
		}

		if _, ok := probe["type"]; ok {
			return decodeAction([]byte(payload))
		}

		for _, key := range listKeys {
			raw, ok := probe[key]
			if !ok {
				continue
			}
			return firstActionFromList(raw)
		}

		return schemas.Action{}, fmt.Errorf("%w: object has neither a type nor a step list", ErrOracleParse)

	case strings.HasPrefix(payload, "["):
		return firstActionFromList([]byte(payload))

	default:
		return schemas.Action{}, fmt.Errorf("%w: no JSON structure in response", ErrOracleParse)
	}
}

func firstActionFromList(raw []byte) (schemas.Action, error) {
	var list []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return schemas.Action{}, fmt.Errorf("%w: %v", ErrOracleParse, err)
	}
	if len(list) == 0 {
		return schemas.Action{}, fmt.Errorf("%w: empty step list", ErrOracleParse)
	}
	return decodeAction(list[0])
}

func decodeAction(raw []byte) (schemas.Action, error) {
	var action schemas.Action
	if err := json.Unmarshal(raw, &action); err != nil {
		return schemas.Action{}, fmt.Errorf("%w: %v", ErrOracleParse, err)
	}
	if err := action.Validate(); err != nil {
		return schemas.Action{}, fmt.Errorf("%w: %v", ErrOracleParse, err)
	}
	return action, nil
}
