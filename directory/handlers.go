package directory

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"salonq/models"
	"salonq/utils"
)

type Handlers struct {
	catalog *Catalog
}

func NewHandlers(c *Catalog) *Handlers {
	return &Handlers{catalog: c}
}

// GET /api/shops
func (h *Handlers) ListShops(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	shops, err := h.catalog.ListShops(r.Context())
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, shops)
}

// POST /api/shops
func (h *Handlers) CreateShop(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, _ := utils.PrincipalFromContext(r.Context())
	var in ShopInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	shop, err := h.catalog.CreateShop(r.Context(), p, in)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, shop)
}

// GET /api/shops/owner/my-shop
func (h *Handlers) MyShop(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	shop, err := h.catalog.ShopByOwner(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, shop)
}

// PUT /api/shops/:shopId
func (h *Handlers) UpdateShop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in ShopInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	shop, err := h.catalog.UpdateShop(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("shopId"), in)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, shop)
}

// GET /api/services/:shopId
func (h *Handlers) ListServices(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	services, err := h.catalog.ListServices(r.Context(), ps.ByName("shopId"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, services)
}

// POST /api/services
func (h *Handlers) AddService(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in ServiceInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	svc, err := h.catalog.AddService(r.Context(), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, svc)
}

// PUT /api/services/:serviceId
func (h *Handlers) UpdateService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in ServiceInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	svc, err := h.catalog.UpdateService(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("serviceId"), in)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, svc)
}

// DELETE /api/services/:serviceId
func (h *Handlers) DeleteService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.catalog.DeleteService(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("serviceId")); err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequireOwner rejects callers whose role is not shop_owner.
func RequireOwner(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		p, ok := utils.PrincipalFromContext(r.Context())
		if !ok || p.Role != models.RoleShopOwner {
			utils.RespondWithError(w, http.StatusForbidden, "shop owners only")
			return
		}
		next(w, r, ps)
	}
}
