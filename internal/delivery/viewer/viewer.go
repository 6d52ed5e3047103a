package viewer

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sgf_viewer/internal/adapters"
	"sgf_viewer/internal/bootstrap"
	"sgf_viewer/internal/domain/record"
	"sgf_viewer/internal/domain/sgf"
	errs "sgf_viewer/internal/errors"
	"sgf_viewer/internal/httpresponse"
	repo "sgf_viewer/internal/repository"
	vieweruc "sgf_viewer/internal/usecase/viewer"
	"sgf_viewer/internal/utils"
)

type ViewerHandler struct {
	cfg      bootstrap.Config
	log      *zap.SugaredLogger
	records  *repo.RecordRepository
	viewerUC *vieweruc.ViewerUseCase
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewViewerHandler(cfg bootstrap.Config, log *zap.SugaredLogger, mongoAdapter *adapters.AdapterMongo, redisAdapter *adapters.AdapterRedis) *ViewerHandler {
	records := repo.NewRecordRepository(cfg, log, redisAdapter.GetClient(), mongoAdapter.Database)
	sessions := repo.NewSessionRedisStorage(redisAdapter.GetClient())
	return &ViewerHandler{
		cfg:      cfg,
		log:      log,
		records:  records,
		viewerUC: vieweruc.NewViewerUseCase(records, sessions, log),
	}
}

type UploadRecordRequest struct {
	Sgf string `json:"sgf"`
}

type UploadRecordResponse struct {
	RecordID string `json:"record_id"`
}

// HandleUploadRecord stores an SGF file in the archive. The text is
// parsed first, so the archive only ever contains loadable records.
func (h *ViewerHandler) HandleUploadRecord(w http.ResponseWriter, r *http.Request) {
	var req UploadRecordRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		h.log.Error("upload record: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: err.Error()})
		return
	}

	tree, err := sgf.Parse(req.Sgf)
	if err != nil {
		h.log.Error("upload record: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: errs.ErrMalformedRecord.Error()})
		return
	}

	rec := record.Record{
		BlackName: tree.Info.BlackName,
		WhiteName: tree.Info.WhiteName,
		Date:      tree.Info.Date,
		Result:    tree.Info.Result,
		BoardSize: tree.Info.BoardSize,
		Sgf:       req.Sgf,
	}

	recordID, err := h.records.SaveRecord(r.Context(), rec)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: errs.ErrInternal.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, UploadRecordResponse{RecordID: recordID})
}

func (h *ViewerHandler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	resp, err := h.records.ListRecords(r.Context(), page)
	if err != nil {
		h.log.Error(err)
		httpresponse.WriteResponseWithStatus(w, http.StatusInternalServerError,
			httpresponse.ErrorResponse{ErrorDescription: errs.ErrInternal.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
}

type OpenViewerRequest struct {
	RecordID string `json:"record_id"`
}

type OpenViewerResponse struct {
	SessionID string         `json:"session_id"`
	Info      sgf.GameInfo   `json:"info"`
	State     vieweruc.State `json:"state"`
}

func (h *ViewerHandler) HandleOpenViewer(w http.ResponseWriter, r *http.Request) {
	var req OpenViewerRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil || req.RecordID == "" {
		h.log.Error("open viewer: bad request")
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "record_id is required"})
		return
	}

	s, err := h.viewerUC.Open(r.Context(), req.RecordID)
	if err != nil {
		h.writeViewerError(w, err)
		return
	}

	info, _ := s.Info()
	resp := OpenViewerResponse{
		SessionID: s.ID,
		Info:      info,
		State:     s.State(),
	}
	s.MarkDrawn()

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, resp)
}

type CloseViewerRequest struct {
	SessionID string `json:"session_id"`
}

func (h *ViewerHandler) HandleCloseViewer(w http.ResponseWriter, r *http.Request) {
	var req CloseViewerRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil || req.SessionID == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "session_id is required"})
		return
	}

	h.viewerUC.Close(req.SessionID)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, "session closed")
}

func (h *ViewerHandler) HandleViewerInfo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromQuery(w, r)
	if !ok {
		return
	}

	info, opened := s.Info()
	if !opened {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: errs.ErrNoRecordLoaded.Error()})
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, info)
}

func (h *ViewerHandler) HandleViewerState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessionFromQuery(w, r)
	if !ok {
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, s.State())
	s.MarkDrawn()
}

func (h *ViewerHandler) sessionFromQuery(w http.ResponseWriter, r *http.Request) (*vieweruc.Session, bool) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "session_id is required"})
		return nil, false
	}

	s, err := h.viewerUC.Get(r.Context(), sessionID)
	if err != nil {
		h.writeViewerError(w, err)
		return nil, false
	}
	return s, true
}

func (h *ViewerHandler) writeViewerError(w http.ResponseWriter, err error) {
	h.log.Error(err)
	status := http.StatusInternalServerError
	if errors.Is(err, errs.ErrRecordNotFound) || errors.Is(err, errs.ErrSessionNotFound) {
		status = http.StatusNotFound
	} else if errors.Is(err, errs.ErrMalformedRecord) {
		status = http.StatusBadRequest
	}
	httpresponse.WriteResponseWithStatus(w, status,
		httpresponse.ErrorResponse{ErrorDescription: err.Error()})
}

// NavCommand is one navigation request on the websocket stream.
type NavCommand struct {
	Op  string `json:"op"`
	Ply int    `json:"ply,omitempty"`
}

type NavResponse struct {
	Moved bool           `json:"moved"`
	State vieweruc.State `json:"state"`
}

// HandleViewerStream drives a viewer session over a websocket: the
// client sends navigation commands, the server answers each with a
// fresh state frame. One connection is the single driver of a session,
// so navigation stays strictly sequential.
func (h *ViewerHandler) HandleViewerStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "session_id is required"})
		return
	}

	s, err := h.viewerUC.Get(r.Context(), sessionID)
	if err != nil {
		h.writeViewerError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade error: ", err)
		return
	}
	defer conn.Close()

	for {
		var cmd NavCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			h.log.Error("read error: ", err)
			return
		}

		moved, err := h.applyCommand(s, cmd)
		if err != nil {
			// structural violation: the session is unusable, drop it
			h.log.Errorf("session %s: %v", s.ID, err)
			conn.WriteMessage(websocket.TextMessage, []byte(err.Error()))
			h.viewerUC.Drop(s.ID)
			return
		}

		resp := NavResponse{
			Moved: moved,
			State: s.State(),
		}
		s.MarkDrawn()

		if err := conn.WriteJSON(resp); err != nil {
			h.log.Error("write error: ", err)
			return
		}
	}
}

func (h *ViewerHandler) applyCommand(s *vieweruc.Session, cmd NavCommand) (bool, error) {
	switch cmd.Op {
	case "forward":
		return s.Forward(), nil
	case "back":
		return s.Back()
	case "variation_up":
		return s.VariationUp()
	case "variation_down":
		return s.VariationDown()
	case "next_event":
		return s.NextEvent(), nil
	case "prev_event":
		return s.PrevEvent()
	case "jump":
		return s.JumpToMove(cmd.Ply)
	case "toggle_comment":
		return s.SwitchFullComment(), nil
	default:
		h.log.Errorf("unknown op %q", cmd.Op)
		return false, nil
	}
}
