package model

// Viewer 调用方身份，由身份提供方解析后显式传入进度账本与测验引擎
type Viewer struct {
	UserID  string
	Email   string
	Loading bool
}

// Anonymous 未登录访客
var Anonymous = Viewer{}

func NewViewer(userID, email string) Viewer {
	return Viewer{UserID: userID, Email: email}
}

// SignedIn 身份已确定且有用户
func (v Viewer) SignedIn() bool {
	return !v.Loading && v.UserID != ""
}
