package models

// TokenKind — тип токена; определяет секрет подписи и TTL.
type TokenKind string

const (
	// KindAccess — короткоживущий access-токен для авторизации запросов.
	KindAccess TokenKind = "access"
	// KindRefresh — долгоживущий refresh-токен для ротации пары.
	KindRefresh TokenKind = "refresh"
)
