package service

import (
	"fmt"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/models"
)

// legalTransitions is the session state machine. It replaces the original
// tool's rerun-the-whole-script control flow with discrete transitions
// driven by login, navigate and submit actions.
var legalTransitions = map[models.SessionState][]models.SessionState{
	models.StateLoading:        {models.StateAwaitingRating, models.StateComplete},
	models.StateAwaitingRating: {models.StateSaving, models.StateAdvancing, models.StateComplete},
	models.StateSaving:         {models.StateAdvancing, models.StateAwaitingRating},
	models.StateAdvancing:      {models.StateAwaitingRating, models.StateComplete},
	models.StateComplete:       {models.StateAwaitingRating},
}

// transition moves the session to next, enforcing machine legality. An
// illegal transition is a programming error surfaced loudly rather than a
// user-facing condition.
func transition(s *models.Session, next models.SessionState) error {
	for _, allowed := range legalTransitions[s.State] {
		if allowed == next {
			s.State = next
			return nil
		}
	}
	return fmt.Errorf("illegal session transition %s -> %s", s.State, next)
}
