package lobby

import (
	"math/rand"
	"time"
)

// timeTables holds the fixed event schedules a generated lobby may use,
// reproduced verbatim from the only confirmed capture (20 minutes) plus two
// synthetic variants offset by 5 and 10 minutes respectively.
var timeTables = [][]EventTimestamp{
	{ // 20 minute schedule
		{0, EventOverheadLightingBase},
		{0, EventStatueLightingBase},
		{0, EventSpotlightLightingBase},
		{780, EventStatueEndingPhaseOne},
		{840, EventOverheadEndingPhaseOne},
		{840, EventStatueEndingPhaseTwo},
		{900, EventOverheadEndingPhaseTwo},
		{900, EventOverheadEndingPhaseThree},
		{900, EventSpotlightEndingPhaseOne},
		{960, EventOverheadEndingPhaseThree},
		{960, EventStatueEndingPhaseTwo},
		{960, EventSpotlightEndingPhaseTwo},
		{960, EventEndAllMinigames},
		{1020, EventOverheadEndingPhaseFour},
		{1020, EventSpotlightEndingPhaseThree},
		{1020, EventStartFireworks},
		{1075, EventCreateParade},
		{1080, EventOverheadEndingPhaseFive},
		{1080, EventSpotlightEndingPhaseTwo},
		{1080, EventEndFireworks},
		{1140, EventSpotlightLightingBase},
		{1200, EventClosePlaza},
	},
	{ // 25 minute schedule: 20 minute schedule offset by 5 minutes
		{0, EventOverheadLightingBase},
		{0, EventStatueLightingBase},
		{0, EventSpotlightLightingBase},
		{1080, EventStatueEndingPhaseOne},
		{1140, EventOverheadEndingPhaseOne},
		{1140, EventStatueEndingPhaseTwo},
		{1200, EventOverheadEndingPhaseTwo},
		{1200, EventOverheadEndingPhaseThree},
		{1200, EventSpotlightEndingPhaseOne},
		{1260, EventOverheadEndingPhaseThree},
		{1260, EventStatueEndingPhaseTwo},
		{1260, EventSpotlightEndingPhaseTwo},
		{1260, EventEndAllMinigames},
		{1320, EventOverheadEndingPhaseFour},
		{1320, EventSpotlightEndingPhaseThree},
		{1320, EventStartFireworks},
		{1375, EventCreateParade},
		{1380, EventOverheadEndingPhaseFive},
		{1380, EventSpotlightEndingPhaseTwo},
		{1380, EventEndFireworks},
		{1440, EventSpotlightLightingBase},
		{1500, EventClosePlaza},
	},
	{ // 30 minute schedule: 20 minute schedule offset by 10 minutes
		{0, EventOverheadLightingBase},
		{0, EventStatueLightingBase},
		{0, EventSpotlightLightingBase},
		{1380, EventStatueEndingPhaseOne},
		{1440, EventOverheadEndingPhaseOne},
		{1440, EventStatueEndingPhaseTwo},
		{1500, EventOverheadEndingPhaseTwo},
		{1500, EventOverheadEndingPhaseThree},
		{1500, EventSpotlightEndingPhaseOne},
		{1560, EventOverheadEndingPhaseThree},
		{1560, EventStatueEndingPhaseTwo},
		{1560, EventSpotlightEndingPhaseTwo},
		{1560, EventEndAllMinigames},
		{1620, EventOverheadEndingPhaseFour},
		{1620, EventSpotlightEndingPhaseThree},
		{1620, EventStartFireworks},
		{1675, EventCreateParade},
		{1680, EventOverheadEndingPhaseFive},
		{1680, EventSpotlightEndingPhaseTwo},
		{1680, EventEndFireworks},
		{1740, EventSpotlightLightingBase},
		{1800, EventClosePlaza},
	},
}

// weightedChoice picks an index into weights using weighted random sampling,
// the same algorithm as Python's random.choices for a single draw.
func weightedChoice(rng *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	target := rng.Intn(total)
	for i, w := range weights {
		if target < w {
			return i
		}
		target -= w
	}
	return len(weights) - 1
}

// dayOfYearSeason classifies a day-of-year (1-366) into a northern
// hemisphere season bucket. Winter's range wraps across the year boundary,
// so SeasonWinter is the default/fallback; SeasonNone is never returned.
func dayOfYearSeason(day int) Season {
	switch {
	case day >= 80 && day < 172:
		return SeasonSpring
	case day >= 172 && day < 264:
		return SeasonSummer
	case day >= 264 && day < 355:
		return SeasonFall
	default:
		return SeasonWinter
	}
}

// GenerateRandomLobby produces a new lobby using the same weighted-random
// rules as the reference generator: room type biased toward the four common
// types (MEW is rare), a coin flip for the arceus bitflag, an optional
// season biased toward whatever the current northern-hemisphere season is,
// and one of the three fixed event schedules chosen uniformly at random.
func GenerateRandomLobby(rng *rand.Rand, now time.Time) Lobby {
	roomTypes := []RoomType{RoomTypeFire, RoomTypeWater, RoomTypeGrass, RoomTypeElectric, RoomTypeMew}
	roomWeights := []int{10, 10, 10, 10, 1}
	roomType := roomTypes[weightedChoice(rng, roomWeights)]

	var arceusFlag uint32
	if rng.Intn(2) == 0 {
		arceusFlag = 1
	}

	season := SeasonNone
	if rng.Intn(2) == 0 {
		current := dayOfYearSeason(now.YearDay())
		weights := []int{10, 10, 10, 10}
		switch current {
		case SeasonSpring:
			weights[0] = 50
		case SeasonSummer:
			weights[1] = 50
		case SeasonFall:
			weights[2] = 50
		default:
			weights[3] = 50
		}
		seasons := []Season{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter}
		season = seasons[weightedChoice(rng, weights)]
	}

	schedule := timeTables[rng.Intn(len(timeTables))]
	events := make([]EventTimestamp, len(schedule))
	copy(events, schedule)

	return Lobby{
		LockAfterSeconds: uint32(schedule[len(schedule)-1].AtSeconds),
		Unused:           0,
		ArceusBitflags:   arceusFlag,
		RoomType:         roomType,
		Season:           season,
		Events:           events,
	}
}
