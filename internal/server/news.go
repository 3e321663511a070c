package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pressroomlabs/pressroom/internal/agent/core"
)

// NewsHandler serves the pipeline flows: raw headlines, topic analysis,
// expert lookup, and email composition.
type NewsHandler struct {
	Pipeline core.Pipeline
	Timeout  time.Duration
}

func (h *NewsHandler) Register(g *echo.Group) {
	g.GET("/news", h.rawNews)
	g.GET("/news/analysis", h.analysis)
	g.POST("/news/analysis", h.analysisForCategory)
	g.GET("/news/experts", h.newsExperts)
	g.POST("/experts", h.expertsForTopic)
	g.POST("/emails/structured", h.structuredEmail)
	g.POST("/emails/freeform", h.freeformEmail)
}

func (h *NewsHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	timeout := h.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return context.WithTimeout(c.Request().Context(), timeout)
}

// rawNews returns the current headline batch without any generative
// processing. The category query parameter is optional.
func (h *NewsHandler) rawNews(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	items, err := h.Pipeline.FetchNews(ctx, c.QueryParam("category"))
	if err != nil {
		return pipelineError(c, err)
	}
	return envelope(c, http.StatusOK, items)
}

func (h *NewsHandler) analysis(c echo.Context) error {
	return h.runAnalysis(c, "")
}

func (h *NewsHandler) analysisForCategory(c echo.Context) error {
	var req AnalysisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "category is required")
	}
	return h.runAnalysis(c, req.Category)
}

func (h *NewsHandler) runAnalysis(c echo.Context, category string) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.Pipeline.AnalyzeTopics(ctx, category)
	if err != nil {
		return pipelineError(c, err)
	}
	return envelope(c, http.StatusOK, result)
}

// newsExperts runs the full chain and returns the expert sets per topic.
func (h *NewsHandler) newsExperts(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.Pipeline.Analyze(ctx, "")
	if err != nil {
		return pipelineError(c, err)
	}
	sets := make([]core.ExpertRecommendationSet, 0, len(result.Topics))
	for _, te := range result.Topics {
		sets = append(sets, te.Experts)
	}
	return envelopeWithAdvisory(c, http.StatusOK, ExpertsResponse{ExpertRecommendations: sets}, result.Advisory)
}

func (h *NewsHandler) expertsForTopic(c echo.Context) error {
	var req ExpertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	set, err := h.Pipeline.ExpertsForTopic(ctx, req.toTopic())
	if err != nil {
		return pipelineError(c, err)
	}
	return envelopeWithAdvisory(c, http.StatusOK, ExpertsResponse{ExpertRecommendations: []core.ExpertRecommendationSet{set}}, set.Advisory)
}

func (h *NewsHandler) structuredEmail(c echo.Context) error {
	var req StructuredEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	experts := req.allExperts()
	if len(experts) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one expert is required")
	}

	templates := make([]core.EmailTemplate, 0, len(experts))
	for _, expert := range experts {
		tmpl, err := h.Pipeline.ComposeStructured(expert, req.Topic)
		if err != nil {
			return pipelineError(c, err)
		}
		templates = append(templates, tmpl)
	}
	return envelope(c, http.StatusOK, StructuredEmailResponse{EmailTemplates: templates})
}

func (h *NewsHandler) freeformEmail(c echo.Context) error {
	var req FreeformEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	draft, err := h.Pipeline.ComposeFreeform(ctx, core.FreeformDraft{
		Subject: req.Subject,
		Name:    req.Name,
		Body:    req.Body,
	})
	if err != nil {
		return pipelineError(c, err)
	}
	return envelope(c, http.StatusOK, FreeformEmailResponse{
		FormattedEmail: FormattedEmailBody{
			Subject:       draft.Subject,
			Greeting:      draft.Greeting,
			Introduction:  draft.Introduction,
			FormattedBody: draft.FormattedBody,
			Closing:       draft.Closing,
		},
		WordCount: draft.WordCount,
		KeyPoints: draft.KeyPoints,
	})
}
