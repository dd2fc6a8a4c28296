package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"clinicstock/m/internal/reports"
	"clinicstock/m/internal/repository"
	"clinicstock/m/internal/store"
)

const sessionCookie = "session"

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	repo      *repository.Repository
	secret    string
	adminHash []byte
}

// New constructs a Handler. adminPassword is hashed once at startup; the
// plaintext is never kept.
func New(repo *repository.Repository, secret, adminPassword string) (*Handler, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}
	return &Handler{repo: repo, secret: secret, adminHash: hash}, nil
}

// Router wires up the HTTP API. Mutating endpoints are form-encoded POSTs
// that redirect on success and render an error view on failure; report
// endpoints are read-only JSON.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/medicines", func(r chi.Router) {
		r.Get("/", h.listMedicines)
		r.Post("/", h.addMedicine)
		r.Post("/{id}/restock", h.restockMedicine)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Post("/", h.addUser)
		r.Post("/{id}/transfer", h.transferUser)
		r.Post("/{id}/delete", h.deleteUser)
	})

	r.Get("/clinics", h.listClinics)
	r.Post("/usage", h.recordUsage)

	r.Route("/reports", func(r chi.Router) {
		r.Get("/stock", h.stockDashboard)
		r.Get("/usage", h.usageReport)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.adminLogin)
		r.Group(func(protected chi.Router) {
			protected.Use(h.sessionMiddleware)
			protected.Get("/statistics", h.clinicStatistics)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Form handlers

func (h *Handler) addMedicine(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "unable to parse form")
		return
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("quantity")))
	if err != nil {
		renderError(w, http.StatusBadRequest, "quantity must be a whole number")
		return
	}
	if _, err := h.repo.AddMedicine(r.PostFormValue("name"), r.PostFormValue("category"), quantity); err != nil {
		renderRepoError(w, err)
		return
	}
	http.Redirect(w, r, "/reports/stock", http.StatusSeeOther)
}

func (h *Handler) restockMedicine(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "unable to parse form")
		return
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("quantity")))
	if err != nil {
		renderError(w, http.StatusBadRequest, "quantity must be a whole number")
		return
	}
	if _, err := h.repo.RestockMedicine(chi.URLParam(r, "id"), quantity); err != nil {
		renderRepoError(w, err)
		return
	}
	http.Redirect(w, r, "/reports/stock", http.StatusSeeOther)
}

func (h *Handler) addUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "unable to parse form")
		return
	}
	if _, err := h.repo.AddUser(r.PostFormValue("name"), r.PostFormValue("notes"), r.PostFormValue("clinic_id")); err != nil {
		renderRepoError(w, err)
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) transferUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "unable to parse form")
		return
	}
	if err := h.repo.TransferUser(chi.URLParam(r, "id"), strings.TrimSpace(r.PostFormValue("clinic_id"))); err != nil {
		renderRepoError(w, err)
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteUser(chi.URLParam(r, "id")); err != nil {
		renderRepoError(w, err)
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// recordUsage reads parallel medicine_id/quantity fields; the repeated
// confirmed field carries the ids of the checked line items.
func (h *Handler) recordUsage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "unable to parse form")
		return
	}
	medicineIDs := r.PostForm["medicine_id"]
	quantities := r.PostForm["quantity"]
	if len(medicineIDs) == 0 || len(medicineIDs) != len(quantities) {
		renderError(w, http.StatusBadRequest, "medicine_id and quantity are required for each line")
		return
	}
	confirmed := make(map[string]bool, len(r.PostForm["confirmed"]))
	for _, id := range r.PostForm["confirmed"] {
		confirmed[id] = true
	}

	lines := make([]repository.UsageLine, 0, len(medicineIDs))
	for i, id := range medicineIDs {
		quantity, err := strconv.Atoi(strings.TrimSpace(quantities[i]))
		if err != nil {
			renderError(w, http.StatusBadRequest, "quantity must be a whole number")
			return
		}
		lines = append(lines, repository.UsageLine{
			MedicineID: strings.TrimSpace(id),
			Quantity:   quantity,
			Confirmed:  confirmed[strings.TrimSpace(id)],
		})
	}
	if _, err := h.repo.RecordUsage(strings.TrimSpace(r.PostFormValue("user_id")), lines); err != nil {
		renderRepoError(w, err)
		return
	}
	http.Redirect(w, r, "/reports/usage", http.StatusSeeOther)
}

// Read-only endpoints

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.repo.Medicines())
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.repo.Users())
}

func (h *Handler) listClinics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.repo.Clinics())
}

func (h *Handler) stockDashboard(w http.ResponseWriter, r *http.Request) {
	dash := reports.BuildStockDashboard(h.repo.Medicines(), h.repo.UsageEvents())
	respondJSON(w, http.StatusOK, dash)
}

func (h *Handler) usageReport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	report := reports.BuildUsageReport(filter, h.repo.Users(), h.repo.Medicines(), h.repo.UsageEvents())
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) clinicStatistics(w http.ResponseWriter, r *http.Request) {
	stats := reports.BuildClinicStatistics(h.repo.Clinics(), h.repo.Users(), h.repo.Medicines(), h.repo.UsageEvents())
	respondJSON(w, http.StatusOK, stats)
}

func parseFilter(r *http.Request) (reports.Filter, error) {
	filter := reports.Filter{
		Mode:                    reports.ModeAll,
		IncludeUsersWithNoUsage: r.URL.Query().Get("include_inactive") == "1",
	}
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "all":
	case "day", "week", "month":
		filter.Mode = reports.Mode(mode)
	case "range":
		filter.Mode = reports.ModeRange
		from, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("from"), time.Local)
		if err != nil {
			return reports.Filter{}, errors.New("from must be in YYYY-MM-DD format")
		}
		to, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("to"), time.Local)
		if err != nil {
			return reports.Filter{}, errors.New("to must be in YYYY-MM-DD format")
		}
		filter.From, filter.To = from, to
	default:
		return reports.Filter{}, fmt.Errorf("unknown mode %q", mode)
	}
	return filter, nil
}

// Session auth

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "unable to parse form")
		return
	}
	if bcrypt.CompareHashAndPassword(h.adminHash, []byte(r.PostFormValue("password"))) != nil {
		renderError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	claims := sessionClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.secret))
	if err != nil {
		renderError(w, http.StatusInternalServerError, "unable to start session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	http.Redirect(w, r, "/admin/statistics", http.StatusSeeOther)
}

func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "login required")
			return
		}
		token, err := jwt.ParseWithClaims(cookie.Value, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		claims, ok := token.Claims.(*sessionClaims)
		if !ok || claims.Role != "admin" {
			respondError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helpers

// renderRepoError maps the repository error taxonomy onto the in-place
// error view.
func renderRepoError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicateName), errors.Is(err, repository.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, store.ErrStorageWrite):
		status = http.StatusInternalServerError
	}
	renderError(w, status, err.Error())
}

func renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!doctype html><html><body><h1>Request failed</h1><p>%s</p><p><a href=\"javascript:history.back()\">Go back</a></p></body></html>\n", html.EscapeString(message))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
