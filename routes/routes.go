package routes

import (
	"github.com/estateplan/apiv1/auth"
	"github.com/estateplan/apiv1/middlewares"
	"github.com/estateplan/apiv1/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

var validate *validator.Validate

func CreateRoutes(r *mux.Router, svc *auth.Service) {
	validate = validator.New()
	s := r.PathPrefix("/api/auth").Subrouter()
	s.Use(middlewares.CORS)
	s.Use(middlewares.RateLimit(utils.RATE_LIMIT_PER_SECOND))
	AuthRouter(s, svc)
}
