package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/studio/video"
)

type videoCallbackRequest struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskId       string   `json:"taskId"`
		SuccessFlag  int      `json:"successFlag"`
		ResultUrls   []string `json:"resultUrls"`
		ErrorMessage string   `json:"errorMessage"`
	} `json:"data"`
}

func (r videoCallbackRequest) Validate() error {
	var errList []error
	if r.Data.TaskId == "" {
		errList = append(errList, errors.New("'data.taskId' is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type videoCallbackResult struct {
	Acknowledged bool `json:"acknowledged"`
}

type videoCallbackResponse = HttpResponse[videoCallbackResult]

func (h *HttpHandler) VideoCallback(ctx *fiber.Ctx) (err error) {
	var req videoCallbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	err = h.usecase.HandleVideoCallback(ctx.UserContext(), req.Data.TaskId, video.TaskStatus{
		SuccessFlag:  req.Data.SuccessFlag,
		ResultUrls:   req.Data.ResultUrls,
		ErrorMessage: req.Data.ErrorMessage,
	})
	if err != nil {
		return errors.Wrap(err, "error during VideoCallback")
	}

	resp := videoCallbackResponse{
		Result: &videoCallbackResult{Acknowledged: true},
	}
	return errors.WithStack(ctx.JSON(resp))
}
