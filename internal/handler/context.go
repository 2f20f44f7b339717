package handler

type ContextKey string

var (
	RoleCtxKey    ContextKey = "role"
	SubCtxKey     ContextKey = "sub"
	MyInfoCtx     ContextKey = "myInfo"
	UserInfoCtx   ContextKey = "userInfo"
	StaffCtx      ContextKey = "staff"
	TaskCtx       ContextKey = "task"
	ScheduleCtx   ContextKey = "schedule"
	AssignmentCtx ContextKey = "assignment"
	InvitationCtx ContextKey = "invitation"

	WeekTemplateCtx ContextKey = "weekTemplate"
	ShareLinkCtx    ContextKey = "shareLink"
)

const tokenCookieName = "__mahuti_tasks_token"
