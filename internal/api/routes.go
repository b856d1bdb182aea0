package api

import "github.com/gin-gonic/gin"

// TaskAPIWrap 把 ITaskAPI 绑定到路由
type TaskAPIWrap struct {
	inner ITaskAPI
}

func NewTaskAPIWrap(inner ITaskAPI) *TaskAPIWrap {
	return &TaskAPIWrap{inner: inner}
}

func (a *TaskAPIWrap) BindAll(router gin.IRouter) {
	router.POST("api/v1/tasks", a.Create)
	router.GET("api/v1/tasks/:id", a.Get)
	router.PATCH("api/v1/tasks/:id", a.Patch)
	router.POST("api/v1/tasks/:id/report", a.Report)
	router.POST("api/v1/tasks/:id/approve", a.Decide)
	router.POST("api/v1/tasks/:id/archive", a.Archive)
	router.GET("api/v1/events", a.ListEvents)
}

func (a *TaskAPIWrap) Create(c *gin.Context) {
	var req CreateTaskReq
	if !onGinBind(c, &req, "JSON") {
		return
	}
	resp, err := a.inner.Create(c, req)
	onGinCreated(c, resp, err)
}

func (a *TaskAPIWrap) Get(c *gin.Context) {
	var uri IDReq
	if !onGinBind(c, &uri, "URI") {
		return
	}
	resp, err := a.inner.Get(c, uri.ID)
	onGinResponse(c, resp, err)
}

func (a *TaskAPIWrap) Patch(c *gin.Context) {
	var uri IDReq
	var req PatchTaskReq
	if !onGinBind(c, &uri, "URI") || !onGinBind(c, &req, "JSON") {
		return
	}
	resp, err := a.inner.Patch(c, uri.ID, req)
	onGinResponse(c, resp, err)
}

func (a *TaskAPIWrap) Report(c *gin.Context) {
	var uri IDReq
	var req ReportReq
	if !onGinBind(c, &uri, "URI") || !onGinBind(c, &req, "JSON") {
		return
	}
	resp, err := a.inner.Report(c, uri.ID, req)
	onGinResponse(c, resp, err)
}

func (a *TaskAPIWrap) Decide(c *gin.Context) {
	var uri IDReq
	var req DecisionReq
	if !onGinBind(c, &uri, "URI") || !onGinBind(c, &req, "JSON") {
		return
	}
	resp, err := a.inner.Decide(c, uri.ID, req)
	onGinResponse(c, resp, err)
}

func (a *TaskAPIWrap) Archive(c *gin.Context) {
	var uri IDReq
	if !onGinBind(c, &uri, "URI") {
		return
	}
	onGinNoContent(c, a.inner.Archive(c, uri.ID))
}

func (a *TaskAPIWrap) ListEvents(c *gin.Context) {
	var req ListEventsReq
	if !onGinBind(c, &req, "QUERY") {
		return
	}
	resp, err := a.inner.ListEvents(c, req)
	onGinResponse(c, resp, err)
}

// RegularTaskAPIWrap 把 IRegularTaskAPI 绑定到路由
type RegularTaskAPIWrap struct {
	inner IRegularTaskAPI
}

func NewRegularTaskAPIWrap(inner IRegularTaskAPI) *RegularTaskAPIWrap {
	return &RegularTaskAPIWrap{inner: inner}
}

func (a *RegularTaskAPIWrap) BindAll(router gin.IRouter) {
	router.POST("api/v1/regular-tasks/run", a.Run)
	router.POST("api/v1/regular-tasks", a.Create)
	router.GET("api/v1/regular-tasks", a.List)
	router.GET("api/v1/regular-tasks/:id", a.Get)
}

func (a *RegularTaskAPIWrap) Run(c *gin.Context) {
	var req RunReq
	if c.Request.ContentLength != 0 && !onGinBind(c, &req, "JSON") {
		return
	}
	resp, err := a.inner.Run(c, req)
	onGinResponse(c, resp, err)
}

func (a *RegularTaskAPIWrap) Create(c *gin.Context) {
	var req TemplateReq
	if !onGinBind(c, &req, "JSON") {
		return
	}
	resp, err := a.inner.Create(c, req)
	onGinCreated(c, resp, err)
}

func (a *RegularTaskAPIWrap) List(c *gin.Context) {
	var req ListTemplatesReq
	if !onGinBind(c, &req, "QUERY") {
		return
	}
	resp, err := a.inner.List(c, req)
	onGinResponse(c, resp, err)
}

func (a *RegularTaskAPIWrap) Get(c *gin.Context) {
	var uri IDReq
	if !onGinBind(c, &uri, "URI") {
		return
	}
	resp, err := a.inner.Get(c, uri.ID)
	onGinResponse(c, resp, err)
}

// CommonAPIWrap 健康检查不需要鉴权
type CommonAPIWrap struct {
	inner ICommonAPI
}

func NewCommonAPIWrap(inner ICommonAPI) *CommonAPIWrap {
	return &CommonAPIWrap{inner: inner}
}

func (a *CommonAPIWrap) BindAll(router gin.IRouter) {
	router.GET("api/v1/health", a.HealthCheck)
}

func (a *CommonAPIWrap) HealthCheck(c *gin.Context) {
	resp, err := a.inner.HealthCheck(c)
	onGinResponse(c, resp, err)
}
