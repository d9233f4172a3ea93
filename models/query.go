package models

import (
	"fmt"
	"time"
)

// TimeRange selects the popularity window.
type TimeRange string

const (
	RangeAllTime   TimeRange = ""
	RangeToday     TimeRange = "today"
	RangeLastWeek  TimeRange = "lastWeek"
	RangeLastMonth TimeRange = "lastMonth"
	RangeLastYear  TimeRange = "lastYear"
)

// ParseTimeRange treats unknown values as all-time, matching clients that
// send "allTime" or nothing.
func ParseTimeRange(s string) TimeRange {
	switch r := TimeRange(s); r {
	case RangeToday, RangeLastWeek, RangeLastMonth, RangeLastYear:
		return r
	}
	return RangeAllTime
}

// Start returns the earliest interaction time that counts for r.
func (r TimeRange) Start(now time.Time) time.Time {
	switch r {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case RangeLastWeek:
		return now.AddDate(0, 0, -7)
	case RangeLastMonth:
		return now.AddDate(0, -1, 0)
	case RangeLastYear:
		return now.AddDate(-1, 0, 0)
	}
	return time.Unix(0, 0).UTC()
}

type CommentSort string

const (
	SortNewest   CommentSort = "newest"
	SortLikes    CommentSort = "likes"
	SortDislikes CommentSort = "dislikes"
	SortReplies  CommentSort = "replies"
)

func ParseCommentSort(s string) (CommentSort, error) {
	switch c := CommentSort(s); c {
	case "":
		return SortNewest, nil
	case SortNewest, SortLikes, SortDislikes, SortReplies:
		return c, nil
	}
	return "", fmt.Errorf("sortBy must be one of newest, likes, dislikes, replies")
}

type TopicSort string

const (
	SortTotalPosts TopicSort = "totalPosts"
	SortTotalLikes TopicSort = "totalLikes"
)

func ParseTopicSort(s string) (TopicSort, error) {
	switch t := TopicSort(s); t {
	case "":
		return SortTotalPosts, nil
	case SortTotalPosts, SortTotalLikes:
		return t, nil
	}
	return "", fmt.Errorf("sortBy must be one of totalPosts, totalLikes")
}
