package oracles

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("malformed response")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// ExtractJSON returns the json document in text: the body of a ```json fence
// if there is one, otherwise the span from the first '{' to the last '}'.
func ExtractJSON(text string) (string, bool) {
	if _, rest, ok := strings.Cut(text, "```json"); ok {
		if body, _, ok := strings.Cut(rest, "```"); ok {
			return strings.TrimSpace(body), true
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// Parse decodes text as the response shape of kind and checks its required fields.
func Parse(kind Kind, text string) (Response, error) {
	doc, ok := ExtractJSON(text)
	if !ok {
		return nil, malformed("no json object found")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &fields); err != nil {
		return nil, malformed("%v", err)
	}

	switch kind {

	case KindStrategize:
		var ret Strategy
		if err := decodeFields(doc, fields, &ret, "strategy"); err != nil {
			return nil, err
		}
		ret.Strategy = strings.ToLower(strings.TrimSpace(ret.Strategy))
		return ret, nil

	case KindPlan:
		var ret PlanResponse
		if err := decodeFields(doc, fields, &ret, "plan"); err != nil {
			return nil, err
		}
		if len(ret.Plan) == 0 {
			return nil, malformed("zero-step plan")
		}
		for i, step := range ret.Plan {
			if strings.TrimSpace(step.Description) == "" {
				return nil, malformed("step %d has no description", i+1)
			}
		}
		ret.Plan = ret.Plan.Renumber()
		return ret, nil

	case KindReflectOnPlan:
		var ret PlanReflection
		if err := decodeFields(doc, fields, &ret, "doable"); err != nil {
			return nil, err
		}
		ret.Doable = strings.ToLower(strings.TrimSpace(ret.Doable))
		return ret, nil

	case KindAct:
		var ret Action
		if err := decodeFields(doc, fields, &ret, "action"); err != nil {
			return nil, err
		}
		if strings.TrimSpace(ret.Code) == "" {
			return nil, malformed("empty action")
		}
		return ret, nil

	case KindReflect:
		var ret Reflection
		if err := decodeFields(doc, fields, &ret); err != nil {
			return nil, err
		}
		next, err := parseNextAction(fields["next_action"])
		if err != nil {
			return nil, err
		}
		ret.Next = next
		return ret, nil

	}

	return nil, fmt.Errorf("unknown response kind: %q", kind)
}

func decodeFields(doc string, fields map[string]json.RawMessage, target any, required ...string) error {
	for _, name := range required {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return malformed("missing field %q", name)
		}
	}
	if err := json.Unmarshal([]byte(doc), target); err != nil {
		return malformed("%v", err)
	}
	return nil
}

func parseNextAction(raw json.RawMessage) (NextAction, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return NextActionName(""), nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return NextActionName(strings.TrimSpace(name)), nil
	}
	var compound struct {
		Action              string `json:"action"`
		StepNumber          int    `json:"step_number"`
		RevisedInstructions string `json:"revised_instructions"`
	}
	if err := json.Unmarshal(raw, &compound); err != nil {
		return nil, malformed("next_action: %v", err)
	}
	if compound.Action != "retry_earlier_step" {
		return NextActionName(compound.Action), nil
	}
	return RetryEarlierStep{
		StepNumber:          compound.StepNumber,
		RevisedInstructions: compound.RevisedInstructions,
	}, nil
}
