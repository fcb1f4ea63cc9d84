package service

// BadgeLevel 积分等级，按累计积分划分
type BadgeLevel string

const (
	LevelNewbie     BadgeLevel = "Newbie"
	LevelExplorer   BadgeLevel = "Explorer"
	LevelAchiever   BadgeLevel = "Achiever"
	LevelSpecialist BadgeLevel = "Specialist"
	LevelExpert     BadgeLevel = "Expert"
	LevelMaster     BadgeLevel = "Master"
	LevelLegend     BadgeLevel = "Legend"
)

// badgeScale 按下限升序排列
var badgeScale = []struct {
	min   int
	level BadgeLevel
}{
	{0, LevelNewbie},
	{20, LevelExplorer},
	{40, LevelAchiever},
	{60, LevelSpecialist},
	{80, LevelExpert},
	{100, LevelMaster},
	{120, LevelLegend},
}

func BadgeLevelFor(points int) BadgeLevel {
	level := LevelNewbie
	for _, step := range badgeScale {
		if points >= step.min {
			level = step.level
		}
	}
	return level
}

// Rank 返回等级序号，未知等级为 -1
func (l BadgeLevel) Rank() int {
	for i, step := range badgeScale {
		if step.level == l {
			return i
		}
	}
	return -1
}

// Next 返回下一等级及其所需积分，已是最高等级时 ok 为 false
func (l BadgeLevel) Next() (next BadgeLevel, minPoints int, ok bool) {
	r := l.Rank()
	if r < 0 || r+1 >= len(badgeScale) {
		return "", 0, false
	}
	step := badgeScale[r+1]
	return step.level, step.min, true
}
