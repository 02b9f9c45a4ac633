package server

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ppiankov/rubriccheck/internal/grade"
	"github.com/ppiankov/rubriccheck/internal/locate"
	"github.com/ppiankov/rubriccheck/internal/marker"
	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/override"
	"github.com/ppiankov/rubriccheck/internal/report"
	"github.com/ppiankov/rubriccheck/internal/score"
	"github.com/ppiankov/rubriccheck/internal/session"
)

type stateResponse struct {
	session.State
	CooldownSeconds int  `json:"cooldownSeconds"`
	HasDraft        bool `json:"hasDraft"`
}

// overrideResponse carries the frames a client steps through to move the
// displayed score to its new value
type overrideResponse struct {
	stateResponse
	ScoreFrames []int `json:"scoreFrames"`
}

const scoreFrames = 12

type overrideRequest struct {
	Status *model.Status `json:"status"`
}

type chatRequest struct {
	History []model.ChatMessage `json:"history" validate:"dive"`
	Message string              `json:"message" validate:"required,max=4000"`
}

type chatResponse struct {
	Reply   string              `json:"reply"`
	History []model.ChatMessage `json:"history"`
}

type highlightResponse struct {
	Index     int               `json:"index"`
	Criterion string            `json:"criterion"`
	Status    model.Status      `json:"status"`
	Locatable bool              `json:"locatable"`
	Match     *locate.MatchSpec `json:"match,omitempty"`
	FileIndex int               `json:"fileIndex"`
	Segments  []locate.Segment  `json:"segments"`
}

type markerResponse struct {
	Visible  bool             `json:"visible"`
	Index    int              `json:"index"`
	File     int              `json:"file"`
	Position *marker.Position `json:"position,omitempty"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return SendSuccess(c, "ok", fiber.Map{"status": "ok"})
}

func (s *Server) respondState(c *fiber.Ctx, message string, st session.State) error {
	return SendSuccess(c, message, s.stateOf(st))
}

func (s *Server) stateOf(st session.State) stateResponse {
	remaining := st.CooldownRemaining(s.now())
	return stateResponse{
		State:           st,
		CooldownSeconds: int((remaining + time.Second - 1) / time.Second),
		HasDraft:        s.controller.HasDraft(),
	}
}

func (s *Server) state(c *fiber.Ctx) error {
	return s.respondState(c, "", s.controller.Snapshot())
}

func (s *Server) saveDraft(c *fiber.Ctx) error {
	var inputs model.GradeRequest
	if err := c.BodyParser(&inputs); err != nil {
		return SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if err := s.validator.Struct(inputs); err != nil {
		return SendError(c, fiber.StatusBadRequest, err.Error())
	}

	st, err := s.controller.Dispatch(session.SetInputs{Inputs: inputs})
	if err != nil {
		return SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return s.respondState(c, "draft saved", st)
}

func (s *Server) restoreDraft(c *fiber.Ctx) error {
	st, ok, err := s.controller.RestoreDraft()
	if err != nil {
		return SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	if !ok {
		return SendError(c, fiber.StatusNotFound, "no saved draft")
	}
	return s.respondState(c, "draft restored", st)
}

func (s *Server) loadExample(c *fiber.Ctx) error {
	st, err := s.controller.Dispatch(session.LoadExample{})
	if err != nil {
		return SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return s.respondState(c, "example loaded", st)
}

// check grades the current inputs and answers once the result is in
func (s *Server) check(c *fiber.Ctx) error {
	if err := s.validator.Request(c.UserContext(), s.controller.Snapshot().Inputs); err != nil {
		return SendError(c, fiber.StatusBadRequest, err.Error())
	}

	done, err := s.controller.Check(s.base)
	switch {
	case errors.Is(err, session.ErrCoolingDown):
		st := s.stateOf(s.controller.Snapshot())
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(st.CooldownSeconds))
		return SendErrorData(c, fiber.StatusTooManyRequests, session.ErrorQuota, st)
	case errors.Is(err, session.ErrIncomplete):
		return SendError(c, fiber.StatusBadRequest, err.Error())
	case err != nil:
		return SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	select {
	case <-done:
	case <-s.base.Done():
		return SendError(c, fiber.StatusServiceUnavailable, "server shutting down")
	}

	st := s.controller.Snapshot()
	switch st.Error {
	case "":
		return s.respondState(c, "check complete", st)
	case session.ErrorQuota:
		resp := s.stateOf(st)
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resp.CooldownSeconds))
		return SendErrorData(c, fiber.StatusTooManyRequests, st.Error, resp)
	default:
		return SendErrorData(c, fiber.StatusBadGateway, st.Error, s.stateOf(st))
	}
}

func (s *Server) reset(c *fiber.Ctx) error {
	st, err := s.controller.Dispatch(session.Reset{})
	if err != nil {
		return SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return s.respondState(c, "reset", st)
}

func (s *Server) dismissError(c *fiber.Ctx) error {
	st, err := s.controller.Dispatch(session.DismissError{})
	if err != nil {
		return SendError(c, fiber.StatusInternalServerError, err.Error())
	}
	return s.respondState(c, "", st)
}

func (s *Server) override(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return SendError(c, fiber.StatusBadRequest, "index must be a number")
	}

	var body overrideRequest
	if err := c.BodyParser(&body); err != nil {
		return SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	return s.applyOverride(c, "override applied", session.Override{Index: index, Status: body.Status})
}

func (s *Server) toggle(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return SendError(c, fiber.StatusBadRequest, "index must be a number")
	}
	return s.applyOverride(c, "override toggled", session.ToggleOverride{Index: index})
}

func (s *Server) clearOverrides(c *fiber.Ctx) error {
	return s.applyOverride(c, "overrides cleared", session.ClearOverrides{})
}

func (s *Server) applyOverride(c *fiber.Ctx, message string, a session.Action) error {
	from := 0
	if prev := s.controller.Snapshot(); prev.Result != nil {
		from = prev.Result.Summary.Score
	}

	st, err := s.controller.Dispatch(a)
	if err != nil {
		return SendError(c, overrideStatus(err), err.Error())
	}
	return SendSuccess(c, message, overrideResponse{
		stateResponse: s.stateOf(st),
		ScoreFrames:   score.Animate(from, st.Result.Summary.Score, scoreFrames),
	})
}

func overrideStatus(err error) int {
	switch {
	case errors.Is(err, override.ErrIndexOutOfRange):
		return fiber.StatusNotFound
	case errors.Is(err, override.ErrInvalidStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, override.ErrNoResult):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// criterion looks up the criterion named by the :index parameter
func (s *Server) criterion(c *fiber.Ctx) (session.State, int, *fiber.Error) {
	st := s.controller.Snapshot()
	if st.Result == nil {
		return st, 0, fiber.NewError(fiber.StatusConflict, override.ErrNoResult.Error())
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return st, 0, fiber.NewError(fiber.StatusBadRequest, "index must be a number")
	}
	if index < 0 || index >= len(st.Result.Criteria) {
		return st, 0, fiber.NewError(fiber.StatusNotFound, override.ErrIndexOutOfRange.Error())
	}
	return st, index, nil
}

// highlight places one criterion's evidence in the submission text, or
// in the first submission file whose text contains it
func (s *Server) highlight(c *fiber.Ctx) error {
	st, index, ferr := s.criterion(c)
	if ferr != nil {
		return SendError(c, ferr.Code, ferr.Message)
	}

	cr := st.Result.Criteria[index]
	in := st.Inputs
	resp := highlightResponse{
		Index:     index,
		Criterion: cr.Criterion,
		Status:    cr.Effective(),
		FileIndex: -1,
	}

	if m, ok := s.files.Locate(cr.Evidence, in.SubmissionText); ok {
		resp.Locatable = true
		resp.Match = m
		resp.Segments = s.files.Annotate(st.Result.Criteria, index, in.SubmissionText)
		return SendSuccess(c, "", resp)
	}

	if fi := s.files.FindFile(cr.Evidence, in.SubmissionFiles); fi >= 0 {
		file := in.SubmissionFiles[fi]
		segments, err := s.files.SplitFile(cr.Evidence, file, cr.Effective())
		if err != nil {
			return SendError(c, fiber.StatusInternalServerError, err.Error())
		}
		resp.Locatable = true
		resp.FileIndex = fi
		resp.Match, _ = s.files.LocateInFile(cr.Evidence, file)
		resp.Segments = segments
		return SendSuccess(c, "", resp)
	}

	resp.Locatable = cr.VisualCoordinates != nil
	resp.Segments = s.files.Annotate(nil, -1, in.SubmissionText)
	return SendSuccess(c, "evidence not found in the text", resp)
}

func (s *Server) marker(c *fiber.Ctx) error {
	st, index, ferr := s.criterion(c)
	if ferr != nil {
		return SendError(c, ferr.Code, ferr.Message)
	}

	file := c.QueryInt("file", 0)
	resp := markerResponse{Index: index, File: file}
	if pos, ok := marker.Resolve(st.Result.Criteria[index], file); ok {
		resp.Visible = true
		resp.Position = pos
	}
	return SendSuccess(c, "", resp)
}

func (s *Server) rewrite(c *fiber.Ctx) error {
	st, index, ferr := s.criterion(c)
	if ferr != nil {
		return SendError(c, ferr.Code, ferr.Message)
	}

	suggestions, err := s.grader.Rewrite(c.UserContext(), st.Result.Criteria[index], st.Inputs.SubmissionText, st.Inputs.RubricText)
	if err != nil {
		return s.gradeError(c, err)
	}
	return SendSuccess(c, "", fiber.Map{"suggestions": suggestions})
}

func (s *Server) chat(c *fiber.Ctx) error {
	var body chatRequest
	if err := c.BodyParser(&body); err != nil {
		return SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if err := s.validator.Struct(body); err != nil {
		return SendError(c, fiber.StatusBadRequest, err.Error())
	}

	st := s.controller.Snapshot()
	if st.Result == nil {
		return SendError(c, fiber.StatusConflict, override.ErrNoResult.Error())
	}

	history := append(body.History, model.ChatMessage{Role: model.ChatRoleUser, Text: body.Message})
	reply, err := s.grader.Chat(c.UserContext(), history, st.Inputs, st.Result)
	if err != nil {
		return s.gradeError(c, err)
	}

	history = append(history, model.ChatMessage{Role: model.ChatRoleModel, Text: reply})
	return SendSuccess(c, "", chatResponse{Reply: reply, History: history})
}

// gradeError maps orchestrator failures to HTTP answers
func (s *Server) gradeError(c *fiber.Ctx, err error) error {
	switch grade.KindOf(err) {
	case grade.KindQuotaExceeded:
		return SendError(c, fiber.StatusTooManyRequests, session.ErrorQuota)
	case grade.KindInvalidModelOutput:
		return SendError(c, fiber.StatusBadGateway, "the model returned an unusable answer")
	default:
		s.logger.Warn().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("model call failed")
		return SendError(c, fiber.StatusBadGateway, session.ErrorGeneric)
	}
}

var contentTypes = map[report.Format]string{
	report.FormatText:     "text/plain; charset=utf-8",
	report.FormatTable:    "text/plain; charset=utf-8",
	report.FormatMarkdown: "text/markdown; charset=utf-8",
	report.FormatJSON:     "application/json",
	report.FormatHTML:     "text/html; charset=utf-8",
}

// export renders the current result as a downloadable report
func (s *Server) export(c *fiber.Ctx) error {
	st := s.controller.Snapshot()
	if st.Result == nil {
		return SendError(c, fiber.StatusConflict, override.ErrNoResult.Error())
	}

	format := report.Format(c.Query("format", string(report.FormatText)))
	ct, ok := contentTypes[format]
	if !ok {
		return SendError(c, fiber.StatusBadRequest, fmt.Sprintf("unknown format: %s", format))
	}

	rep := s.pipeline.Report("", st.Inputs, st.Result)
	var buf bytes.Buffer
	if err := s.pipeline.Render(&buf, format, rep); err != nil {
		return SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	name := report.FileName(s.now(), st.Inputs.Strict)
	if format != report.FormatText {
		name = name[:len(name)-len(".txt")] + report.Extension(format)
	}
	c.Set(fiber.HeaderContentType, ct)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Send(buf.Bytes())
}
