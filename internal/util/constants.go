package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// 测验结果列表
const (
	DefaultRecentQuizLimit = 5
	MaxRecentQuizLimit     = 50
)

// 密码规则
const MinPasswordLength = 6
