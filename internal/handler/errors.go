package handler

import (
    "errors"
    "fmt"
    "net/http"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/restaurant-reservation/internal/validation"
)

// ErrorHandler is the echo HTTPErrorHandler.  Every failure is answered
// with the same text under "error" and "message".  Reservation validation
// errors carry their own status, echo errors keep theirs and anything else
// is logged and turned into a 500.
func ErrorHandler(err error, c echo.Context) {
    if c.Response().Committed {
        return
    }
    status, msg := http.StatusInternalServerError, "internal server error"
    var he *echo.HTTPError
    if ve, ok := validation.As(err); ok {
        status, msg = ve.Status, ve.Message
    } else if errors.As(err, &he) {
        status, msg = he.Code, fmt.Sprint(he.Message)
    } else {
        logrus.WithError(err).WithFields(logrus.Fields{
            "method": c.Request().Method,
            "uri":    c.Request().RequestURI,
        }).Error("request failed")
    }
    if c.Request().Method == http.MethodHead {
        err = c.NoContent(status)
    } else {
        err = c.JSON(status, echo.Map{"error": msg, "message": msg})
    }
    if err != nil {
        logrus.WithError(err).Warn("writing error response failed")
    }
}

// Validator adapts go-playground/validator to echo.Validator.  Field
// names in messages are the json names the client sent.
type Validator struct {
    v *validator.Validate
}

// NewValidator returns a Validator reporting json field names.
func NewValidator() *Validator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &Validator{v: v}
}

// Validate implements echo.Validator.  The first failing field becomes a
// 400 validation error.
func (cv *Validator) Validate(i any) error {
    err := cv.v.Struct(i)
    if err == nil {
        return nil
    }
    var fields validator.ValidationErrors
    if !errors.As(err, &fields) || len(fields) == 0 {
        return validation.Invalid("%v", err)
    }
    fe := fields[0]
    switch fe.Tag() {
    case "required":
        if fe.Field() == "data" {
            return validation.Invalid("data is missing")
        }
        return validation.Invalid("%s must exist", fe.Field())
    case "min":
        if fe.Kind() == reflect.String {
            return validation.Invalid("%s must be at least %s characters", fe.Field(), fe.Param())
        }
        return validation.Invalid("%s must be at least %s", fe.Field(), fe.Param())
    case "email":
        return validation.Invalid("%s must be a valid email", fe.Field())
    case "oneof":
        return validation.Invalid("%s must be one of %s", fe.Field(), fe.Param())
    }
    return validation.Invalid("%s is invalid", fe.Field())
}
