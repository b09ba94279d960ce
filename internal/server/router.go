// Package server exposes the review workflow over HTTP. Handlers are thin
// adapters: parsing, status mapping, and serialization only, with all core
// logic in the roster, session, export, and storage packages.
package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/follow-sift/fsift/internal/export"
	"github.com/follow-sift/fsift/internal/roster"
	"github.com/follow-sift/fsift/internal/session"
	"github.com/follow-sift/fsift/internal/storage"
)

const (
	analyzeRoutePath       = "/api/analyze"
	sessionRoutePath       = "/api/session"
	decisionsRoutePath     = "/api/session/decisions"
	undoRoutePath          = "/api/session/undo"
	resetRoutePath         = "/api/session/reset"
	doneRoutePath          = "/api/done"
	doneUsernameRoutePath  = "/api/done/:username"
	exportCSVRoutePath     = "/api/export/csv"
	exportJSONRoutePath    = "/api/export/json"
	healthRoutePath        = "/healthz"
	usernameRouteParameter = "username"

	followingFormField = "following"
	followersFormField = "followers"

	csvContentType         = "text/csv; charset=utf-8"
	jsonContentType        = "application/json; charset=utf-8"
	contentDispositionName = "Content-Disposition"
	csvAttachmentFormat    = `attachment; filename="follow-decisions-%s.csv"`
	exportDateLayout       = "2006-01-02"

	errorResponseKey = "error"
	doneResponseKey  = "done"
	healthStatusKey  = "status"
	healthStatusOK   = "ok"

	errorMessageMissingFiles       = "both a following and a followers file are required"
	errorMessageReadUpload         = "uploaded file could not be read"
	errorMessageEmptyCollections   = "the files look empty or badly formatted"
	errorMessageEveryoneFollowsYou = "everyone you follow follows you back"
	errorMessageInvalidDirection   = "direction must be unfollow or keep"
	errorMessageSessionComplete    = "all candidates are already reviewed"
	errorMessageNothingToUndo      = "no decision to undo"
	errorMessageMissingUsername    = "username is required"
	errorMessageExportFailure      = "export rendering failed"

	logMessageAnalyzeRejected = "analyze request rejected"
	logMessageExportFailure   = "export render failure"
)

// RouterConfig configures the HTTP routing for the review workflow.
type RouterConfig struct {
	Manager   *session.Manager
	DoneStore *storage.DoneStore
	Logger    *zap.Logger
	Clock     func() time.Time
}

// NewRouter constructs a Gin engine wired to the review handlers. Missing
// collaborators fall back to in-memory defaults so the router is always
// serviceable.
func NewRouter(configuration RouterConfig) (*gin.Engine, error) {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	manager := configuration.Manager
	if manager == nil {
		manager = session.NewManager(session.ManagerConfig{Logger: logger})
	}
	doneStore := configuration.DoneStore
	if doneStore == nil {
		doneStore = storage.NewDoneStore(storage.NewMemoryStore(), logger)
	}
	clock := configuration.Clock
	if clock == nil {
		clock = time.Now
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := reviewHandler{
		manager:   manager,
		doneStore: doneStore,
		logger:    logger,
		clock:     clock,
	}

	engine.POST(analyzeRoutePath, handler.analyze)
	engine.GET(sessionRoutePath, handler.sessionState)
	engine.POST(decisionsRoutePath, handler.decide)
	engine.POST(undoRoutePath, handler.undo)
	engine.POST(resetRoutePath, handler.reset)
	engine.GET(doneRoutePath, handler.listDone)
	engine.POST(doneRoutePath, handler.markDone)
	engine.DELETE(doneUsernameRoutePath, handler.unmarkDone)
	engine.GET(exportCSVRoutePath, handler.exportCSV)
	engine.GET(exportJSONRoutePath, handler.exportJSON)
	engine.GET(healthRoutePath, handler.healthStatus)

	return engine, nil
}

type reviewHandler struct {
	manager   *session.Manager
	doneStore *storage.DoneStore
	logger    *zap.Logger
	clock     func() time.Time
}

// sessionStateResponse is the state snapshot shape shared by every endpoint
// that returns workflow state.
type sessionStateResponse struct {
	Step         session.Step        `json:"step"`
	CurrentIndex int                 `json:"currentIndex"`
	Current      *roster.UserRecord  `json:"current,omitempty"`
	Stats        session.Stats       `json:"stats"`
	Decisions    session.DecisionSet `json:"decisions"`
	CanUndo      bool                `json:"canUndo"`
}

type decisionRequest struct {
	Direction string `json:"direction"`
}

type doneMarkerRequest struct {
	Username string `json:"username"`
}

func (handler reviewHandler) analyze(ginContext *gin.Context) {
	followingData, followingName, followingErr := readUploadedFile(ginContext, followingFormField)
	followersData, followersName, followersErr := readUploadedFile(ginContext, followersFormField)
	if followingErr != nil || followersErr != nil {
		ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: errorMessageMissingFiles})
		return
	}

	var followingRecords, followerRecords []roster.UserRecord
	var normalizeGroup errgroup.Group
	normalizeGroup.Go(func() error {
		records, normalizeErr := roster.NormalizeFile(followingName, followingData, roster.RoleFollowing)
		followingRecords = records
		return normalizeErr
	})
	normalizeGroup.Go(func() error {
		records, normalizeErr := roster.NormalizeFile(followersName, followersData, roster.RoleFollowers)
		followerRecords = records
		return normalizeErr
	})
	if normalizeErr := normalizeGroup.Wait(); normalizeErr != nil {
		handler.logger.Info(logMessageAnalyzeRejected, zap.Error(normalizeErr))
		var formatErr *roster.FormatError
		if errors.As(normalizeErr, &formatErr) {
			ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: formatErr.Message})
			return
		}
		ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: errorMessageReadUpload})
		return
	}

	if len(followingRecords) == 0 || len(followerRecords) == 0 {
		ginContext.JSON(http.StatusUnprocessableEntity, gin.H{errorResponseKey: errorMessageEmptyCollections})
		return
	}

	candidates := roster.Resolve(followingRecords, followerRecords)
	if startErr := handler.manager.Start(candidates); startErr != nil {
		if errors.Is(startErr, session.ErrEmptyCandidates) {
			ginContext.JSON(http.StatusUnprocessableEntity, gin.H{errorResponseKey: errorMessageEveryoneFollowsYou})
			return
		}
		ginContext.JSON(http.StatusInternalServerError, gin.H{errorResponseKey: startErr.Error()})
		return
	}
	handler.respondWithState(ginContext)
}

func (handler reviewHandler) sessionState(ginContext *gin.Context) {
	handler.respondWithState(ginContext)
}

func (handler reviewHandler) decide(ginContext *gin.Context) {
	var request decisionRequest
	if bindErr := ginContext.ShouldBindJSON(&request); bindErr != nil {
		ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: errorMessageInvalidDirection})
		return
	}
	direction, parseErr := session.ParseDirection(request.Direction)
	if parseErr != nil {
		ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: errorMessageInvalidDirection})
		return
	}
	if decideErr := handler.manager.Decide(direction); decideErr != nil {
		ginContext.JSON(http.StatusConflict, gin.H{errorResponseKey: errorMessageSessionComplete})
		return
	}
	handler.respondWithState(ginContext)
}

func (handler reviewHandler) undo(ginContext *gin.Context) {
	if undoErr := handler.manager.Undo(); undoErr != nil {
		ginContext.JSON(http.StatusConflict, gin.H{errorResponseKey: errorMessageNothingToUndo})
		return
	}
	handler.respondWithState(ginContext)
}

func (handler reviewHandler) reset(ginContext *gin.Context) {
	handler.manager.Reset()
	handler.respondWithState(ginContext)
}

func (handler reviewHandler) listDone(ginContext *gin.Context) {
	ginContext.JSON(http.StatusOK, gin.H{doneResponseKey: handler.doneStore.List()})
}

func (handler reviewHandler) markDone(ginContext *gin.Context) {
	var request doneMarkerRequest
	if bindErr := ginContext.ShouldBindJSON(&request); bindErr != nil || request.Username == "" {
		ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: errorMessageMissingUsername})
		return
	}
	handler.doneStore.Mark(request.Username)
	ginContext.JSON(http.StatusOK, gin.H{doneResponseKey: handler.doneStore.List()})
}

func (handler reviewHandler) unmarkDone(ginContext *gin.Context) {
	username := ginContext.Param(usernameRouteParameter)
	if username == "" {
		ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: errorMessageMissingUsername})
		return
	}
	handler.doneStore.Unmark(username)
	ginContext.JSON(http.StatusOK, gin.H{doneResponseKey: handler.doneStore.List()})
}

func (handler reviewHandler) exportCSV(ginContext *gin.Context) {
	now := handler.clock()
	csvDocument, renderErr := export.CSV(handler.manager.Snapshot().Decisions, handler.doneStore.List(), now)
	if renderErr != nil {
		handler.logger.Error(logMessageExportFailure, zap.Error(renderErr))
		ginContext.JSON(http.StatusInternalServerError, gin.H{errorResponseKey: errorMessageExportFailure})
		return
	}
	ginContext.Header(contentDispositionName, fmt.Sprintf(csvAttachmentFormat, now.UTC().Format(exportDateLayout)))
	ginContext.Data(http.StatusOK, csvContentType, []byte(csvDocument))
}

func (handler reviewHandler) exportJSON(ginContext *gin.Context) {
	summary, renderErr := export.JSON(handler.manager.Snapshot().Decisions, handler.clock())
	if renderErr != nil {
		handler.logger.Error(logMessageExportFailure, zap.Error(renderErr))
		ginContext.JSON(http.StatusInternalServerError, gin.H{errorResponseKey: errorMessageExportFailure})
		return
	}
	ginContext.Data(http.StatusOK, jsonContentType, summary)
}

func (handler reviewHandler) healthStatus(ginContext *gin.Context) {
	ginContext.JSON(http.StatusOK, map[string]string{healthStatusKey: healthStatusOK})
}

func (handler reviewHandler) respondWithState(ginContext *gin.Context) {
	state := handler.manager.Snapshot()
	response := sessionStateResponse{
		Step:         handler.manager.Step(),
		CurrentIndex: state.CurrentIndex,
		Stats:        state.Stats,
		Decisions:    state.Decisions,
		CanUndo:      handler.manager.CanUndo(),
	}
	if currentRecord, reviewing := handler.manager.Current(); reviewing {
		response.Current = &currentRecord
	}
	ginContext.JSON(http.StatusOK, response)
}

func readUploadedFile(ginContext *gin.Context, formField string) ([]byte, string, error) {
	fileHeader, formErr := ginContext.FormFile(formField)
	if formErr != nil {
		return nil, "", formErr
	}
	return readMultipartFile(fileHeader)
}

func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, string, error) {
	openedFile, openErr := fileHeader.Open()
	if openErr != nil {
		return nil, "", openErr
	}
	defer openedFile.Close()

	contents, readErr := io.ReadAll(openedFile)
	if readErr != nil {
		return nil, "", readErr
	}
	return contents, fileHeader.Filename, nil
}
