package openai

import (
	"context"
	"fmt"

	"github.com/songquanpeng/litegate/common/logger"
	"github.com/songquanpeng/litegate/relay/model"
)

func ErrorWrapper(err error, code string, statusCode int) *model.ErrorWithStatusCode {
	logger.Error(context.TODO(), fmt.Sprintf("[%s]%+v", code, err))
	Error := model.Error{
		Message: err.Error(),
		Type:    "litegate_error",
		Code:    code,
	}
	return &model.ErrorWithStatusCode{
		Error:      Error,
		StatusCode: statusCode,
	}
}
