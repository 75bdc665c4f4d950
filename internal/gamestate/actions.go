package gamestate

const (
	ActionAttack  = "attack"
	ActionMove    = "move"
	ActionAbility = "ability"
)

// Actions groups the commands issued in one step by kind.
type Actions map[string][]any

// Count is the number of attack, move and ability commands. Other kinds are
// not counted.
func (a Actions) Count() int {
	return len(a[ActionAttack]) + len(a[ActionMove]) + len(a[ActionAbility])
}
