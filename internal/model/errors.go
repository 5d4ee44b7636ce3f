// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageはクライアントにそのまま表示される。
// Detailsはバリデーションエラー時の構造化された補足情報（requirements等）。
type APIError struct {
	Code    string         // エラーコード
	Message string         // エラーメッセージ
	Details map[string]any // 補足情報（レスポンスのトップレベルに展開される）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeInvalidEmail       = "INVALID_EMAIL"
	ErrCodePasswordMismatch   = "PASSWORD_MISMATCH"
	ErrCodeWeakPassword       = "WEAK_PASSWORD"
	ErrCodePasswordTooLong    = "PASSWORD_TOO_LONG"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeWrongPassword      = "WRONG_PASSWORD"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeMissingToken       = "MISSING_TOKEN"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewMissingFieldsError は必須項目不足エラーを生成する。
// messageはエンドポイントごとに異なるため呼び出し側で指定する。
func NewMissingFieldsError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeMissingFields,
		Message: message,
	}
}

// NewInvalidEmailError はメールアドレス形式エラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidEmail,
		Message: "Invalid email format",
	}
}

// NewPasswordMismatchError はパスワード確認の不一致エラーを生成する。
func NewPasswordMismatchError(message string) *APIError {
	return &APIError{
		Code:    ErrCodePasswordMismatch,
		Message: message,
	}
}

// NewWeakPasswordError はパスワードポリシー違反エラーを生成する。
// requirementsにはどの要件を満たしていないかの内訳を渡す。
func NewWeakPasswordError(requirements any) *APIError {
	return &APIError{
		Code:    ErrCodeWeakPassword,
		Message: "Password does not meet requirements",
		Details: map[string]any{"requirements": requirements},
	}
}

// NewPasswordTooLongError はハッシュ化できない長さのパスワードに対するエラーを生成する。
func NewPasswordTooLongError(maxBytes int) *APIError {
	return &APIError{
		Code:    ErrCodePasswordTooLong,
		Message: fmt.Sprintf("Password must be at most %d bytes", maxBytes),
	}
}

// NewDuplicateEmailError は登録済みメールアドレスエラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateEmail,
		Message: "Email already registered",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスとパスワードのどちらが誤っているかは区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Message: "Invalid email or password",
	}
}

// NewWrongPasswordError は現在のパスワード不一致エラーを生成する。
func NewWrongPasswordError() *APIError {
	return &APIError{
		Code:    ErrCodeWrongPassword,
		Message: "Current password is incorrect",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeUserNotFound,
		Message: "User not found",
	}
}

// NewForbiddenError は管理者権限が必要な操作のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:    ErrCodeForbidden,
		Message: "Admin access required",
	}
}

// NewMissingTokenError はAuthorizationヘッダーがない場合のエラーを生成する。
func NewMissingTokenError() *APIError {
	return &APIError{
		Code:    ErrCodeMissingToken,
		Message: "No token provided",
	}
}

// NewInvalidTokenError は署名不正・形式不正トークンのエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidToken,
		Message: "Invalid token",
	}
}

// NewTokenExpiredError は有効期限切れトークンのエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:    ErrCodeTokenExpired,
		Message: "Token expired",
	}
}

// NewInvalidJSONError はリクエストボディのJSONが不正な場合のエラーを生成する。
func NewInvalidJSONError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidJSON,
		Message: "Invalid JSON body",
	}
}

// NewEndpointNotFoundError は未定義ルートへのアクセスエラーを生成する。
func NewEndpointNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: "Endpoint not found",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "Internal server error",
	}
}
