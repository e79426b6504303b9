package wattbox

import "fmt"

// Action is one of the outlet operations the device control API accepts.
type Action string

const (
	ACTION_ON    Action = "on"
	ACTION_OFF   Action = "off"
	ACTION_RESET Action = "reset"
)

func (a Action) String() string {
	return string(a)
}

func (a *Action) Set(v string) error {
	switch Action(v) {
	case ACTION_ON, ACTION_OFF, ACTION_RESET:
		*a = Action(v)
		return nil
	default:
		return fmt.Errorf("must be one of %v", []Action{
			ACTION_ON, ACTION_OFF, ACTION_RESET,
		})
	}
}

func (a Action) Type() string {
	return "Action"
}

// ParseAction validates a string read from config or the environment,
// where the pflag Value interface above doesn't apply.
func ParseAction(v string) (Action, error) {
	var a Action
	if err := a.Set(v); err != nil {
		return "", fmt.Errorf("invalid action %q: %w", v, err)
	}
	return a, nil
}
