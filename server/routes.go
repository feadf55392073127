package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() error {
	pages, err := s.parsePages()
	if err != nil {
		return err
	}

	// Storefront pages. Protected prefixes are gated by the route guard in ServeHTTP.
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.PageHandler(pages.page, homePage), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCatalog, ChainMiddleware(s.PageHandler(pages.page, catalogPage), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCart, ChainMiddleware(s.PageHandler(pages.page, cartPage), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAccount, ChainMiddleware(s.PageHandler(pages.page, accountPage), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAccountOrders, ChainMiddleware(s.PageHandler(pages.page, ordersPage), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteStaffPOS, ChainMiddleware(s.PageHandler(pages.page, posPage), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAdminDashboard, ChainMiddleware(s.PageHandler(pages.page, dashboardPage), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAdminInventory, ChainMiddleware(s.PageHandler(pages.page, inventoryPage), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteForbidden, ChainMiddleware(s.ForbiddenHandler(pages.page), s.HTMLMiddleWare()...))

	// LOGIN / REGISTER
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(pages.login), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(pages.login), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteRegister, ChainMiddleware(s.RegisterPageHandler(pages.register), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterSubmissionHandler(pages.register, pages.login), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionInfoHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPISession, ChainMiddleware(s.SessionInfoHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	s.RegisterRouteFunc("GET "+RouteHealth, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.StaticFileHandler(), s.HTMLMiddleWare(s.CacheMiddleware)...))
	return nil
}

func logError(method, path, error string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Warn().Msgf("[%-19s] %s %s", displayMethod, path, Red+error+ResetColor)
}
