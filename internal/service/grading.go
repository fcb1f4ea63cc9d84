package service

import (
	"encoding/json"
	"math"

	"gorm.io/datatypes"
)

// DefaultRewardSchedule 第 1、2、3 次及之后每次提交测验获得的积分
var DefaultRewardSchedule = []int{100, 75, 50, 25}

// GradeResult 判分结果
type GradeResult struct {
	CorrectCount   int
	TotalQuestions int
	Score          int
}

// Grade 按位置比对答案，未作答的题目记为错误
func Grade(correct []int, answers []int) GradeResult {
	result := GradeResult{TotalQuestions: len(correct)}
	for i, want := range correct {
		if i < len(answers) && answers[i] == want {
			result.CorrectCount++
		}
	}
	result.Score = ScorePercent(result.CorrectCount, result.TotalQuestions)
	return result
}

// ScorePercent 四舍五入到整数百分比，题目为空时为 0
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// RewardForAttempt 第 n 次尝试的积分，超出表长后保持最后一档
func RewardForAttempt(schedule []int, attempt int) int {
	if len(schedule) == 0 {
		schedule = DefaultRewardSchedule
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(schedule) {
		return schedule[len(schedule)-1]
	}
	return schedule[attempt-1]
}

// ParseRewardSchedule 解析测验自定义积分表，格式非法或为空时使用默认表
func ParseRewardSchedule(raw datatypes.JSON) []int {
	if len(raw) == 0 {
		return DefaultRewardSchedule
	}
	var schedule []int
	if err := json.Unmarshal(raw, &schedule); err != nil || len(schedule) == 0 {
		return DefaultRewardSchedule
	}
	for _, p := range schedule {
		if p < 0 {
			return DefaultRewardSchedule
		}
	}
	return schedule
}

// ProgressPercent 向下取整的完成百分比，没有课时时为 0
func ProgressPercent(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(100 * completed / total)
	if p > 100 {
		p = 100
	}
	return p
}
