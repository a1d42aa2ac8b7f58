package scheduler

import (
	"sort"
	"time"
)

// preferredSlotRounds bounds how many consecutive days the preferred slots are tried on.
const preferredSlotRounds = 7

// randomOffset draws whole-minute offsets in [minGap, maxGap) from now.
func (e *Engine) randomOffset(env *searchEnv, budget int, t *tally) (time.Time, bool, error) {
	span := int64((e.cfg.MaxGap - env.minGap) / time.Minute)
	for i := 0; i < budget; i++ {
		offset := env.minGap + time.Duration(int64n(e.rnd, span))*time.Minute
		instant, ok, err := e.accept(env, env.now.Add(offset), t)
		if err != nil || ok {
			return instant, ok, err
		}
	}
	return time.Time{}, false, nil
}

type slot struct {
	hour  int
	score int
}

// slotScore rewards midday and early evening hours and round minutes and
// penalises very early or late hours.
func slotScore(hour, minute int) int {
	score := 0
	if hour >= 10 && hour <= 16 {
		score += 3
	}
	if hour >= 19 && hour <= 21 {
		score += 4
	}
	if minute%30 == 0 {
		score++
	}
	if hour < 8 || hour >= 22 {
		score -= 2
	}
	return score
}

// rankedSlots returns the preferred hours inside the profile window ordered by
// descending score. Equal scores keep their configured order.
func (e *Engine) rankedSlots(profile Profile) []slot {
	slots := make([]slot, 0, len(e.cfg.PreferredHours))
	for _, hour := range e.cfg.PreferredHours {
		tod := NewTimeOfDay(hour, 0)
		if tod < profile.MorningStart || tod >= profile.EveningEnd {
			continue
		}
		slots = append(slots, slot{hour: hour, score: slotScore(hour, 0)})
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].score > slots[j].score
	})
	return slots
}

// preferredSlot tries the next future occurrence of each ranked slot, then the
// same slots on following days, each perturbed by up to half the jitter window.
func (e *Engine) preferredSlot(env *searchEnv, budget int, t *tally) (time.Time, bool, error) {
	slots := e.rankedSlots(env.profile)
	if len(slots) == 0 {
		return time.Time{}, false, nil
	}
	loc := env.profile.location()
	half := int64(e.cfg.JitterWindow/time.Minute) / 2

	used := 0
	for round := 0; round < preferredSlotRounds; round++ {
		for _, s := range slots {
			if used >= budget {
				return time.Time{}, false, nil
			}
			used++

			tod := NewTimeOfDay(s.hour, 0)
			first := 0
			if !tod.on(env.now, 0, loc).After(env.now) {
				first = 1
			}
			jitter := time.Duration(int64n(e.rnd, 2*half+1)-half) * time.Minute
			candidate := tod.on(env.now, first+round, loc).Add(jitter)

			instant, ok, err := e.accept(env, candidate, t)
			if err != nil || ok {
				return instant, ok, err
			}
		}
	}
	return time.Time{}, false, nil
}

type relaxationStep struct {
	percent      int
	dropOptional bool
}

var relaxationSteps = []relaxationStep{
	{percent: 100},
	{percent: 75},
	{percent: 50},
	{percent: 50, dropOptional: true},
}

// relax reruns the random search with a progressively smaller minimum gap and
// finally without priority 0 intervals. The budget is split evenly across
// steps; the remainder goes to the earliest ones.
func (e *Engine) relax(env *searchEnv, budget int, t *tally) (time.Time, *Relaxation, bool, error) {
	perStep, extra := budget/len(relaxationSteps), budget%len(relaxationSteps)
	for level, step := range relaxationSteps {
		stepBudget := perStep
		if level < extra {
			stepBudget++
		}
		if stepBudget == 0 {
			continue
		}

		relaxed := *env
		relaxed.minGap = env.minGap * time.Duration(step.percent) / 100
		var dropped []string
		if step.dropOptional {
			relaxed.intervals = make([]BlockedInterval, 0, len(env.intervals))
			for _, interval := range env.intervals {
				if interval.Priority == MinPriority {
					dropped = append(dropped, interval.ID)
					continue
				}
				relaxed.intervals = append(relaxed.intervals, interval)
			}
		}

		instant, ok, err := e.randomOffset(&relaxed, stepBudget, t)
		if err != nil {
			return time.Time{}, nil, false, err
		}
		if ok {
			return instant, &Relaxation{
				Level:            level,
				MinGapPercent:    step.percent,
				MinGap:           relaxed.minGap,
				DroppedIntervals: dropped,
			}, true, nil
		}
	}
	return time.Time{}, nil, false, nil
}
