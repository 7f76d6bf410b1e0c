package ai

import (
	"github.com/cory-johannsen/slapfight/internal/game/dice"
	"github.com/cory-johannsen/slapfight/internal/game/direction"
)

// Reasons reported for a chosen attack direction.
const (
	ReasonExplore       = "explore"
	ReasonGreedyCounter = "greedy_counter"
	ReasonBlockHabit    = "counter_block_habit"
	ReasonScript        = "script"
	ReasonMirror        = "mirror"
)

// Chooser picks attack directions from the player's observed block and
// attack habits.
type Chooser struct {
	roller       *dice.Roller
	blockCounts  map[direction.Direction]int
	attackCounts map[direction.Direction]int
	lastBlock    direction.Direction
	streak       int
	previous     direction.Direction
}

// NewChooser returns a Chooser with empty histories.
//
// Precondition: roller must be non-nil.
func NewChooser(roller *dice.Roller) *Chooser {
	return &Chooser{
		roller:       roller,
		blockCounts:  make(map[direction.Direction]int),
		attackCounts: make(map[direction.Direction]int),
	}
}

// ObserveBlock records the player's block direction against one AI attack;
// None records an unblocked attack and ends the streak.
func (c *Chooser) ObserveBlock(dir direction.Direction) {
	if dir == direction.None {
		c.lastBlock = direction.None
		c.streak = 0
		return
	}
	c.blockCounts[dir]++
	if dir == c.lastBlock {
		c.streak++
		return
	}
	c.lastBlock = dir
	c.streak = 1
}

// ObserveAttack records the direction of a player slap.
func (c *Chooser) ObserveAttack(dir direction.Direction) {
	if dir != direction.None {
		c.attackCounts[dir]++
	}
}

// Streak returns the repeated player block direction and its length.
func (c *Chooser) Streak() (direction.Direction, int) { return c.lastBlock, c.streak }

// Choose returns the next attack direction and the reason it was picked.
//
// Postcondition: the result is never None.
func (c *Chooser) Choose(difficulty, skill float64) (direction.Direction, string) {
	dir, reason := c.choose(difficulty, skill)
	c.previous = dir
	return dir, reason
}

func (c *Chooser) choose(difficulty, skill float64) (direction.Direction, string) {
	if c.roller.Chance("attack_explore", lerp(0.45, 0.15, difficulty)) {
		d := c.random("attack_explore_dir")
		if d == c.previous && c.roller.Chance("attack_explore_reroll", 0.75) {
			d = c.random("attack_explore_dir")
		}
		return d, ReasonExplore
	}
	if c.streak >= 2 && c.lastBlock != direction.None &&
		c.roller.Chance("attack_greedy", greedyProbability(c.streak, skill)) {
		return c.greedyCounter(), ReasonGreedyCounter
	}
	return c.habitPick(), ReasonBlockHabit
}

func (c *Chooser) random(purpose string) direction.Direction {
	return direction.All[c.roller.Intn(purpose, len(direction.All))]
}

// streakConfidence maps a same-block streak length to a confidence.
func streakConfidence(streak int) float64 {
	switch {
	case streak >= 4:
		return 1
	case streak == 3:
		return 0.75
	case streak == 2:
		return 0.5
	default:
		return 0
	}
}

func greedyProbability(streak int, skill float64) float64 {
	return clamp01((0.15 + 0.55*streakConfidence(streak)) * (0.5 + 0.5*skill))
}

// greedyCounter attacks around the player's repeated block.
func (c *Chooser) greedyCounter() direction.Direction {
	preferred := c.random("greedy_preferred")
	if preferred.Mirror() != c.lastBlock && c.roller.Chance("greedy_take_preferred", 0.85) {
		return preferred
	}
	weights := make([]float64, len(direction.All))
	for i, d := range direction.All {
		if d.Mirror() == c.lastBlock {
			weights[i] = 0.1
			continue
		}
		weights[i] = 1 / float64(1+c.blockCounts[d.Mirror()])
	}
	return c.pick("greedy_weighted", weights)
}

// habitPick favours directions the player rarely blocks.
func (c *Chooser) habitPick() direction.Direction {
	top, second := c.topBlocks()
	maxAttack := 0
	for _, n := range c.attackCounts {
		if n > maxAttack {
			maxAttack = n
		}
	}
	weights := make([]float64, len(direction.All))
	for i, d := range direction.All {
		block := d.Mirror()
		w := 1 / float64(1+c.blockCounts[block])
		switch {
		case top != direction.None && block == top:
			w *= 0.25
		case second != direction.None && block == second:
			w *= 0.6
		}
		if maxAttack > 0 {
			w *= lerp(0.9, 1.1, float64(c.attackCounts[d])/float64(maxAttack))
		}
		weights[i] = w
	}
	return c.pick("habit_weighted", weights)
}

// topBlocks returns the two most frequent player block directions.
func (c *Chooser) topBlocks() (top, second direction.Direction) {
	topN, secondN := 0, 0
	for _, d := range direction.All {
		n := c.blockCounts[d]
		switch {
		case n > topN:
			second, secondN = top, topN
			top, topN = d, n
		case n > secondN:
			second, secondN = d, n
		}
	}
	return top, second
}

func (c *Chooser) pick(purpose string, weights []float64) direction.Direction {
	i := c.roller.Weighted(purpose, weights)
	if i < 0 {
		return direction.Up
	}
	return direction.All[i]
}
