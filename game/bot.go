package game

import "math/rand"

// planBotAction synthesizes one action for a bot holding the turn: a SCAN or
// HACK on a nearby tile most of the time, occasionally ENCRYPT or EVADE.
// Returns false when the bot can no longer act (dead, turn lost, room
// closed).
func (r *Room) planBotAction(bot *Player) (Action, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.gameOver || !bot.Alive || !bot.TurnReady || bot.Pos == nil {
		return Action{}, false
	}

	x, y := bot.Pos.X, bot.Pos.Y

	// Pick a nearby tile other than the current one.
	targetX, targetY := x, y
	for targetX == x && targetY == y {
		targetX = clamp(x+rand.Intn(3)-1, 0, GridSize-1)
		targetY = clamp(y+rand.Intn(3)-1, 0, GridSize-1)
	}

	switch {
	case rand.Float64() < 0.3:
		return Action{Type: ActionHack, X: targetX, Y: targetY}, true
	case rand.Float64() < 0.5:
		return Action{Type: ActionScan, X: targetX, Y: targetY}, true
	case rand.Float64() < 0.2:
		return Action{Type: ActionEncrypt}, true
	default:
		return Action{Type: ActionEvade}, true
	}
}

// takeBotTurn runs on the scheduler pool after the bot's thinking delay and
// feeds the chosen action through the same validation path as human actions.
func (r *Room) takeBotTurn(bot *Player) {
	action, ok := r.planBotAction(bot)
	if !ok {
		return
	}
	r.HandleAction(bot, action)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
