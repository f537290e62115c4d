package handler

type ContextKey string

var (
	SubCtxKey       ContextKey = "sub"
	EmailCtxKey     ContextKey = "email"
	WorkspaceCtxKey ContextKey = "workspace"
)
