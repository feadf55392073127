package server

// Route path constants
// All storefront routes are defined here to ensure consistency and prevent typos
const (
	// Public pages
	RouteIndex     = "/"
	RouteCatalog   = "/catalog"
	RouteCart      = "/cart"
	RouteLogin     = "/login"
	RouteRegister  = "/register"
	RouteForbidden = "/forbidden"

	// Auth form submissions
	RouteAuthLogin    = "/auth/login"
	RouteAuthRegister = "/auth/register"
	RouteAuthLogout   = "/auth/logout"

	// Customer pages (any signed-in role)
	RouteAccount       = "/account"
	RouteAccountOrders = "/account/orders"

	// Staff pages
	RouteStaffPOS = "/staff/pos"

	// Admin pages
	RouteAdminDashboard = "/admin/dashboard"
	RouteAdminInventory = "/admin/inventory"

	// API Routes
	RouteAPISession = "/api/session"
	RouteMetrics    = "/metrics"
	RouteHealth     = "/healthz"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
