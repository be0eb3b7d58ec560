package economy

// MaxLevel is the level cap.
const MaxLevel = 60

// thresholds[n-1] is the cumulative experience required to be level n.
// The gap between consecutive levels is a geometric sequence starting at 100
// with ratio 1.1, so level 2 needs 100, level 3 needs 100+110=210, and so on.
// No term is generated past the cap.
var thresholds [MaxLevel]int64

func init() {
	step := int64(100)
	total := int64(0)
	for n := 1; n < MaxLevel; n++ {
		total += step
		thresholds[n] = total
		step = step * 11 / 10
	}
}

// Level maps accumulated experience to a level in [1,MaxLevel]. It is total
// and monotonic non-decreasing; negative input is treated as zero.
func Level(experience int64) int {
	if experience < 0 {
		experience = 0
	}
	level := 1
	for n := 2; n <= MaxLevel; n++ {
		if experience < thresholds[n-1] {
			break
		}
		level = n
	}
	return level
}

// ExperienceForLevel returns the cumulative experience threshold for the
// given level. Levels at or below 1 need zero; levels past the cap are
// clamped to the cap's threshold.
func ExperienceForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return thresholds[level-1]
}

// ExperienceToNextLevel returns the experience still missing for the next
// level, or zero at the cap.
func ExperienceToNextLevel(experience int64) int64 {
	level := Level(experience)
	if level >= MaxLevel {
		return 0
	}
	return thresholds[level] - experience
}
