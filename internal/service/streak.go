package service

import (
	"sort"
	"time"

	"github.com/jinzhu/now"
)

// Streak 学习连续天数统计
type Streak struct {
	CurrentStreak    int      `json:"currentStreak"`
	LongestStreak    int      `json:"longestStreak"`
	TotalActiveDays  int      `json:"totalActiveDays"`
	ActivityCalendar []string `json:"activityCalendar"`
}

const dayLayout = "2006-01-02"

func utcDay(t time.Time) time.Time {
	return now.With(t.UTC()).BeginningOfDay()
}

// ComputeStreak 根据课时完成时间计算连续学习天数。
// 当前连续从 asOf 向前逐日检查，允许中断一天，连续两天未学习即结束；
// 最长连续在排序后的活跃日期中，相邻间隔不超过两天即视为同一段。
// 日历只包含 asOf 之前 window 天内的活跃日期，升序。
func ComputeStreak(completions []time.Time, asOf time.Time, window int) Streak {
	active := make(map[time.Time]struct{}, len(completions))
	for _, t := range completions {
		active[utcDay(t)] = struct{}{}
	}

	days := make([]time.Time, 0, len(active))
	for d := range active {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	result := Streak{
		TotalActiveDays:  len(days),
		ActivityCalendar: []string{},
	}
	if len(days) == 0 {
		return result
	}

	earliest := days[0]
	check := utcDay(asOf)
	missed := 0
	for missed < 2 {
		if _, ok := active[check]; ok {
			result.CurrentStreak++
			missed = 0
		} else {
			missed++
		}
		check = check.AddDate(0, 0, -1)
		if check.Before(earliest) {
			break
		}
	}

	run := 1
	result.LongestStreak = 1
	for i := 1; i < len(days); i++ {
		gap := int(days[i].Sub(days[i-1]).Hours() / 24)
		if gap <= 2 {
			run++
		} else {
			run = 1
		}
		if run > result.LongestStreak {
			result.LongestStreak = run
		}
	}

	end := utcDay(asOf)
	start := end.AddDate(0, 0, -(window - 1))
	for _, d := range days {
		if d.Before(start) || d.After(end) {
			continue
		}
		result.ActivityCalendar = append(result.ActivityCalendar, d.Format(dayLayout))
	}

	return result
}
