package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/folioapp/api/pkg/auth"
	"github.com/folioapp/api/pkg/logger"
)

// RouteClass is the access class a request path falls into.
type RouteClass int

const (
	// RoutePublic needs no identity.
	RoutePublic RouteClass = iota
	// RouteAdminProtected needs an identity with the admin role.
	RouteAdminProtected
	// RouteAuthenticated needs any identity.
	RouteAuthenticated
)

// Rule binds a path pattern to a route class. Patterns are exact paths or
// a prefix followed by "/*", which matches the prefix itself and any
// subpath.
type Rule struct {
	Pattern string
	Class   RouteClass
}

// Classifier resolves a request path to a route class. Rules are checked
// in order and the first match wins; an unmatched path is Authenticated,
// so a route added without a rule fails closed.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier from ordered rules.
func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// DefaultRules returns the route classes for the portfolio site.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/", Class: RoutePublic},
		{Pattern: "/api/health", Class: RoutePublic},
		{Pattern: "/api/chat", Class: RoutePublic},
		{Pattern: "/api/contact", Class: RoutePublic},
		{Pattern: "/metrics", Class: RoutePublic},
		{Pattern: "/sign-in/*", Class: RoutePublic},
		{Pattern: "/sign-up/*", Class: RoutePublic},
		{Pattern: "/blog/*", Class: RoutePublic},
		{Pattern: "/projects/*", Class: RoutePublic},
		{Pattern: "/admin/*", Class: RouteAdminProtected},
		{Pattern: "/api/admin/*", Class: RouteAdminProtected},
	}
}

// Classify returns the class for a path.
func (c *Classifier) Classify(path string) RouteClass {
	for _, rule := range c.rules {
		if matchPattern(rule.Pattern, path) {
			return rule.Class
		}
	}
	return RouteAuthenticated
}

func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == pattern
}

// identityKey is the context key verified identities are stored under.
type identityKey struct{}

// IdentityFromContext returns the verified caller, or nil on public
// routes reached without credentials.
func IdentityFromContext(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey{}).(*auth.Identity)
	return id
}

// AdmissionConfig configures the admission middleware.
type AdmissionConfig struct {
	Verifier     *auth.Verifier
	Classifier   *Classifier
	SignInURL    string
	DashboardURL string
	IsProduction bool
}

// Admission classifies each request and enforces the class's identity
// requirement. Unauthenticated requests to protected routes are
// redirected to sign-in carrying the original URL; authenticated
// non-admins hitting admin routes land on the dashboard. All responses
// pass through the cookie-hardening writer.
func Admission(cfg AdmissionConfig, log *logger.Logger) func(http.Handler) http.Handler {
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = NewClassifier(DefaultRules())
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w = hardenCookies(w, cfg.IsProduction)

			class := classifier.Classify(r.URL.Path)

			identity, err := cfg.Verifier.IdentityFromRequest(r)
			if err != nil && class == RoutePublic {
				// anonymous access is fine here
				next.ServeHTTP(w, r)
				return
			}

			switch class {
			case RoutePublic:
				// verified identity flows through even on public routes
			case RouteAdminProtected:
				if identity == nil {
					redirectToSignIn(w, r, cfg.SignInURL)
					return
				}
				if !identity.IsAdmin() {
					log.Warn("admin route denied",
						"path", r.URL.Path,
						"user_id", identity.UserID,
						"role", identity.Role(),
					)
					http.Redirect(w, r, cfg.DashboardURL, http.StatusTemporaryRedirect)
					return
				}
			case RouteAuthenticated:
				if identity == nil {
					redirectToSignIn(w, r, cfg.SignInURL)
					return
				}
			}

			if identity != nil {
				ctx := context.WithValue(r.Context(), identityKey{}, identity)
				ctx = context.WithValue(ctx, logger.ContextKeyUserID, identity.UserID)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// redirectToSignIn sends the client to the sign-in page with the absolute
// original URL in redirect_url so the flow can resume after login.
func redirectToSignIn(w http.ResponseWriter, r *http.Request, signInURL string) {
	target := signInURL
	if strings.Contains(target, "?") {
		target += "&redirect_url=" + url.QueryEscape(originalURL(r))
	} else {
		target += "?redirect_url=" + url.QueryEscape(originalURL(r))
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// originalURL reconstructs the absolute URL the client requested.
func originalURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// cookieWriter rewrites every outgoing Set-Cookie before headers flush.
type cookieWriter struct {
	http.ResponseWriter
	secure      bool
	wroteHeader bool
}

func hardenCookies(w http.ResponseWriter, secure bool) http.ResponseWriter {
	return &cookieWriter{ResponseWriter: w, secure: secure}
}

func (cw *cookieWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true

	header := cw.Header()
	cookies := header.Values("Set-Cookie")
	if len(cookies) > 0 {
		header.Del("Set-Cookie")
		for _, raw := range cookies {
			parsed := (&http.Response{Header: http.Header{"Set-Cookie": []string{raw}}}).Cookies()
			if len(parsed) == 0 {
				// unparseable cookies are dropped rather than passed through
				continue
			}
			c := parsed[0]
			c.HttpOnly = true
			c.SameSite = http.SameSiteLaxMode
			if cw.secure {
				c.Secure = true
			}
			header.Add("Set-Cookie", c.String())
		}
	}

	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cookieWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	return cw.ResponseWriter.Write(b)
}
