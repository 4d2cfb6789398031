package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mwodeola/mwodeola-server/internal/server/models"
	"github.com/mwodeola/mwodeola-server/internal/server/services"
)

type detailRequest struct {
	LoginID  string  `json:"login_id" binding:"required"`
	Password string  `json:"password" binding:"required"`
	PIN      *string `json:"pin"`
	Pattern  *string `json:"pattern"`
	Memo     string  `json:"memo"`
}

func (r *detailRequest) toInput() *services.DetailInput {
	return &services.DetailInput{
		LoginID:  r.LoginID,
		Password: r.Password,
		PIN:      r.PIN,
		Pattern:  r.Pattern,
		Memo:     r.Memo,
	}
}

type createGroupRequest struct {
	GroupName      string         `json:"group_name" binding:"required"`
	SNSID          *int16         `json:"sns_id"`
	AppPackageName *string        `json:"app_package_name"`
	WebURL         *string        `json:"web_url"`
	IconType       int16          `json:"icon_type"`
	IconImageURL   *string        `json:"icon_image_url"`
	IsFavorite     bool           `json:"is_favorite"`
	Detail         *detailRequest `json:"detail" binding:"required"`
}

type addDetailRequest struct {
	GroupID string `json:"group_id" binding:"required"`
	detailRequest
}

type groupResponse struct {
	ID             string  `json:"id"`
	GroupName      string  `json:"group_name"`
	SNSID          *int16  `json:"sns_id,omitempty"`
	AppPackageName *string `json:"app_package_name,omitempty"`
	WebURL         *string `json:"web_url,omitempty"`
	IconType       int16   `json:"icon_type"`
	IconImageURL   *string `json:"icon_image_url,omitempty"`
	IsFavorite     bool    `json:"is_favorite"`
}

func newGroupResponse(g *models.AccountGroup) groupResponse {
	return groupResponse{
		ID:             g.ID,
		GroupName:      g.GroupName,
		SNSID:          g.SNSID,
		AppPackageName: g.AppPackageName,
		WebURL:         g.WebURL,
		IconType:       g.IconType,
		IconImageURL:   g.IconImageURL,
		IsFavorite:     g.IsFavorite,
	}
}

type detailResponse struct {
	ID       string  `json:"id"`
	GroupID  string  `json:"group_id"`
	LoginID  string  `json:"login_id"`
	Password string  `json:"password"`
	PIN      *string `json:"pin,omitempty"`
	Pattern  *string `json:"pattern,omitempty"`
	Memo     string  `json:"memo"`
	Views    int     `json:"views"`
}

func (s *Server) createGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	group := &models.AccountGroup{
		UserID:         userID(c),
		SNSID:          req.SNSID,
		GroupName:      req.GroupName,
		AppPackageName: req.AppPackageName,
		WebURL:         req.WebURL,
		IconType:       req.IconType,
		IconImageURL:   req.IconImageURL,
		IsFavorite:     req.IsFavorite,
	}

	group, detail, err := s.accounts.CreateGroup(c.Request.Context(), group, req.Detail.toInput())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"group":     newGroupResponse(group),
		"detail_id": detail.ID,
	})
}

func (s *Server) listGroups(c *gin.Context) {
	groups, err := s.accounts.ListGroups(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, newGroupResponse(g))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) searchGroups(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		s.badRequest(c, "missing name query parameter")
		return
	}

	groups, err := s.accounts.SearchGroups(c.Request.Context(), userID(c), name)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, newGroupResponse(g))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteGroup(c *gin.Context) {
	if err := s.accounts.DeleteGroup(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) addDetail(c *gin.Context) {
	var req addDetailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	detail, err := s.accounts.AddDetail(c.Request.Context(), userID(c), req.GroupID, req.toInput())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"detail_id": detail.ID})
}

func (s *Server) getDetail(c *gin.Context) {
	out, err := s.accounts.GetDetail(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, detailResponse{
		ID:       out.Detail.ID,
		GroupID:  out.Detail.GroupID,
		LoginID:  out.Detail.LoginID,
		Password: out.Password,
		PIN:      out.PIN,
		Pattern:  out.Pattern,
		Memo:     out.Detail.Memo,
		Views:    out.Detail.Views,
	})
}

func (s *Server) updateDetail(c *gin.Context) {
	var req detailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid payload")
		return
	}

	if err := s.accounts.UpdateDetail(c.Request.Context(), userID(c), c.Param("id"), req.toInput()); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
