package notification

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mtasaka/fastnetmon/internal/model"
)

// ExecNotifier runs an operator script for every lifecycle event. The
// script receives the host address, attack direction, attack power and the
// action ("ban", "attack_details" or "unban") as arguments, and the attack
// description on stdin.
type ExecNotifier struct {
	path string
}

// NewExecNotifier creates a notifier for the given script path.
func NewExecNotifier(path string) *ExecNotifier {
	return &ExecNotifier{path: path}
}

func (n *ExecNotifier) run(attack *model.AttackDetails, action, description string) error {
	cmd := exec.Command(n.path,
		attack.Host.String(),
		attack.Direction.String(),
		strconv.FormatUint(attack.AttackPower, 10),
		action,
	)
	cmd.Stdin = strings.NewReader(description)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify script %s: %w: %s", action, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// OnAttackOnset implements model.Notifier.
func (n *ExecNotifier) OnAttackOnset(attack *model.AttackDetails, description string) error {
	return n.run(attack, "ban", description)
}

// OnAttackPeak implements model.Notifier.
func (n *ExecNotifier) OnAttackPeak(attack *model.AttackDetails) error {
	return n.run(attack, "attack_details", model.AttackDescription(attack))
}

// OnAttackClear implements model.Notifier.
func (n *ExecNotifier) OnAttackClear(attack *model.AttackDetails, description string) error {
	return n.run(attack, "unban", description)
}
