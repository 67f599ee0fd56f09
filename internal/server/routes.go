package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Workflow API
	mux.HandleFunc("/api/workflow", s.app.WorkflowHandler.CreateWorkflowHandler) // POST - submit workflow
	mux.HandleFunc("/api/workflow/", s.handleWorkflowRoutes)                     // GET /{id}/status

	// Scraper API
	mux.HandleFunc("/api/scrapers", s.handleScrapersRoute)                          // GET (list), POST (create)
	mux.HandleFunc("/api/scrapers/execute", s.app.ScraperHandler.ExecuteScraperHandler) // POST - queue a run
	mux.HandleFunc("/api/scrapers/jobs/", s.handleScrapeJobRoutes)                  // GET /{id}
	mux.HandleFunc("/api/scrapers/", s.handleScraperRoutes)                         // GET/DELETE /{name}, GET /{name}/results[/latest]

	// Offer API
	mux.HandleFunc("/api/offers", s.handleOffersRoute)          // GET (list), POST (create)
	mux.HandleFunc("/api/offers/slug/", s.handleOfferSlugRoute) // GET /{slug}
	mux.HandleFunc("/api/offers/", s.handleOfferRoutes)         // GET/PUT/DELETE /{id}

	// Status
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)

	// Generated sites are served directly from the hosted directory
	hostedDir := s.app.Config.Storage.Filesystem.HostedSites
	mux.Handle("/hosted-sites/", http.StripPrefix("/hosted-sites/", s.hostedSiteServer(hostedDir)))

	return mux
}

func (s *Server) handleWorkflowRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/status") {
		s.app.WorkflowHandler.GetWorkflowStatusHandler(w, r)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) handleScrapersRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r,
		s.app.ScraperHandler.ListScrapersHandler,
		s.app.ScraperHandler.CreateScraperHandler)
}

func (s *Server) handleScraperRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/scrapers/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	if name, ok := strings.CutSuffix(rest, "/results/latest"); ok {
		self := func(w http.ResponseWriter, r *http.Request) {
			s.app.ScraperHandler.GetLatestResultHandler(w, r, name)
		}
		RouteByMethod(w, r, MethodRouter{"GET": self})
		return
	}
	if name, ok := strings.CutSuffix(rest, "/results"); ok {
		self := func(w http.ResponseWriter, r *http.Request) {
			s.app.ScraperHandler.ListResultsHandler(w, r, name)
		}
		RouteByMethod(w, r, MethodRouter{"GET": self})
		return
	}
	if strings.Contains(rest, "/") {
		http.NotFound(w, r)
		return
	}

	name := rest
	RouteByMethod(w, r, MethodRouter{
		"GET": func(w http.ResponseWriter, r *http.Request) {
			s.app.ScraperHandler.GetScraperHandler(w, r, name)
		},
		"DELETE": func(w http.ResponseWriter, r *http.Request) {
			s.app.ScraperHandler.DeleteScraperHandler(w, r, name)
		},
	})
}

func (s *Server) handleScrapeJobRoutes(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/scrapers/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		http.NotFound(w, r)
		return
	}
	RouteByMethod(w, r, MethodRouter{
		"GET": func(w http.ResponseWriter, r *http.Request) {
			s.app.ScraperHandler.GetScrapeJobHandler(w, r, jobID)
		},
	})
}

func (s *Server) handleOffersRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r,
		s.app.OfferHandler.ListOffersHandler,
		s.app.OfferHandler.CreateOfferHandler)
}

func (s *Server) handleOfferSlugRoute(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(r.URL.Path, "/api/offers/slug/")
	if slug == "" || strings.Contains(slug, "/") {
		http.NotFound(w, r)
		return
	}
	RouteByMethod(w, r, MethodRouter{
		"GET": func(w http.ResponseWriter, r *http.Request) {
			s.app.OfferHandler.GetOfferBySlugHandler(w, r, slug)
		},
	})
}

func (s *Server) handleOfferRoutes(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/offers/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	RouteByMethod(w, r, MethodRouter{
		"GET": func(w http.ResponseWriter, r *http.Request) {
			s.app.OfferHandler.GetOfferHandler(w, r, id)
		},
		"PUT": func(w http.ResponseWriter, r *http.Request) {
			s.app.OfferHandler.UpdateOfferHandler(w, r, id)
		},
		"DELETE": func(w http.ResponseWriter, r *http.Request) {
			s.app.OfferHandler.DeleteOfferHandler(w, r, id)
		},
	})
}

// hostedSiteServer serves generated site files. Bare site names resolve to
// their .html file so QR-encoded locators stay extension-free.
func (s *Server) hostedSiteServer(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" && r.Method != "HEAD" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "" && !strings.Contains(r.URL.Path, ".") {
			r.URL.Path += ".html"
		}
		fs.ServeHTTP(w, r)
	})
}
