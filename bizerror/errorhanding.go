package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"jobflow/misc"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

func ErrorHandling() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handle(c)
		c.Next()
	}
}

func handle(c *gin.Context) {
	if ret := recover(); ret != nil {
		err, ok := ret.(error)
		if !ok {
			err = errors.New(fmt.Sprintf("%s", ret))
		}
		HandleError(c, err)
	} else {
		if err := c.Errors.Last(); err != nil {
			HandleError(c, err)
		}
	}
}

func HandleError(c *gin.Context, err error) {
	logrus.Error(err)

	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	if bizErr, ok := genericErr.(BizError); ok {
		respond := bizErr.Respond()
		c.JSON(respond.Status, &misc.ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data})
		c.Abort()
		return
	}

	// bad request: io.EOF (no body)
	if errors.Is(genericErr, io.EOF) {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "bad_request.body_not_found", Message: "body not found"})
		c.Abort()
		return
	}
	// bad request: json syntax error
	if syntaxErr, ok := genericErr.(*json.SyntaxError); ok {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "bad_request.invalid_body_format", Message: "invalid body format", Data: syntaxErr.Error()})
		c.Abort()
		return
	}
	// validation failed
	if validationErr, ok := genericErr.(validator.ValidationErrors); ok {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "bad_request.validation_failed", Message: "validation failed", Data: validationErr.Error()})
		c.Abort()
		return
	}

	if errors.Is(genericErr, ErrUnauthenticated) {
		c.JSON(http.StatusUnauthorized, &misc.ErrorBody{Code: "common.unauthenticated", Message: "unauthenticated"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrForbidden) {
		c.JSON(http.StatusForbidden, &misc.ErrorBody{Code: "security.forbidden", Message: "access forbidden"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrUnknownStage) {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "stage.unknown_stage", Message: "unknown stage"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrSelfTransition) {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "stage.self_transition", Message: "transition from and to the same stage"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrUnknownTransition) {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "stage.unknown_transition", Message: "no such transition configured"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrStageConfigInvalid) {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "stage.config_invalid", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrQuestionNotInStage) {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "response.question_not_in_stage", Message: "question does not belong to the job's current stage"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrConcurrencyConflict) {
		c.JSON(http.StatusConflict, &misc.ErrorBody{Code: "job.concurrency_conflict", Message: "the job was modified concurrently, retry the submission"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrStageConfigMissing) {
		// do not expose internal structure, the workflow simply can not be loaded
		c.JSON(http.StatusInternalServerError, &misc.ErrorBody{Code: "stage.config_missing", Message: "workflow can not be loaded"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrDependencyCleanup) {
		c.JSON(http.StatusInternalServerError, &misc.ErrorBody{Code: "stage.dependency_cleanup_failed", Message: genericErr.Error()})
		c.Abort()
		return
	}
	if errors.Is(genericErr, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, &misc.ErrorBody{Code: "common.record_not_found", Message: "record not found"})
		c.Abort()
		return
	}

	c.JSON(http.StatusInternalServerError, &misc.ErrorBody{Code: "common.internal_server_error", Message: err.Error()})
	c.Abort()
}
