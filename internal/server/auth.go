package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/usecase"
)

type signUpReq struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Type      string   `json:"type"`
	PhNo      string   `json:"phNo"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	Token string           `json:"token"`
	User  *domain.Identity `json:"user"`
}

func (s *Server) handleSignUp(c *gin.Context) {
	var req signUpReq
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	tok, u, err := s.deps.Auth.SignUp(c.Request.Context(), usecase.SignUpInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Type,
		Phone:     req.PhNo,
		Location:  req.Location,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		s.failAs(c, err, "registration failed")
		return
	}
	c.JSON(http.StatusCreated, authResp{Token: tok, User: u})
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req signInReq
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	tok, u, err := s.deps.Auth.SignIn(c.Request.Context(), req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		s.failAs(c, err, "login failed")
		return
	}
	c.JSON(http.StatusOK, authResp{Token: tok, User: u})
}

func (s *Server) handleMe(c *gin.Context) {
	u, err := s.deps.Auth.Authenticate(c.Request.Context(), claimsOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
