package providers

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/brizzai/cogauth/internal/auth/models"
)

// errorKindByCode covers exceptions that arrive untyped
var errorKindByCode = map[string]models.ErrorKind{
	"NotAuthorizedException":         models.KindInvalidCredentials,
	"UserNotFoundException":          models.KindInvalidCredentials,
	"UserNotConfirmedException":      models.KindInvalidCredentials,
	"PasswordResetRequiredException": models.KindInvalidCredentials,
	"InvalidPasswordException":       models.KindPolicyViolation,
	"InvalidParameterException":      models.KindPolicyViolation,
	"UsernameExistsException":        models.KindDuplicateUser,
	"AliasExistsException":           models.KindDuplicateUser,
	"CodeMismatchException":          models.KindInvalidCode,
	"ExpiredCodeException":           models.KindExpired,
	"TooManyRequestsException":       models.KindProviderUnavailable,
	"TooManyFailedAttemptsException": models.KindProviderUnavailable,
	"LimitExceededException":         models.KindProviderUnavailable,
	"InternalErrorException":         models.KindProviderUnavailable,
}

// mapCognitoError converts SDK errors to *models.AuthError keeping the
// service message verbatim
func mapCognitoError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.Classify(err)
	}

	var (
		notAuthorized *types.NotAuthorizedException
		userNotFound  *types.UserNotFoundException
		invalidPass   *types.InvalidPasswordException
		usernameTaken *types.UsernameExistsException
		codeMismatch  *types.CodeMismatchException
		expiredCode   *types.ExpiredCodeException
		tooMany       *types.TooManyRequestsException
	)
	kind := models.KindUnknown
	switch {
	case errors.As(err, &notAuthorized), errors.As(err, &userNotFound):
		kind = models.KindInvalidCredentials
	case errors.As(err, &invalidPass):
		kind = models.KindPolicyViolation
	case errors.As(err, &usernameTaken):
		kind = models.KindDuplicateUser
	case errors.As(err, &codeMismatch):
		kind = models.KindInvalidCode
	case errors.As(err, &expiredCode):
		kind = models.KindExpired
	case errors.As(err, &tooMany):
		kind = models.KindProviderUnavailable
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind == models.KindUnknown {
			if mapped, ok := errorKindByCode[apiErr.ErrorCode()]; ok {
				kind = mapped
			}
		}
		msg := apiErr.ErrorMessage()
		if msg == "" {
			msg = apiErr.ErrorCode()
		}
		return models.WrapError(kind, msg, err)
	}

	// No API error at all means the request never got an answer
	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		return models.WrapError(models.KindProviderUnavailable, "Identity provider is unavailable", err)
	}
	return models.WrapError(kind, err.Error(), err)
}
