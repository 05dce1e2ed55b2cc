package gateway

import (
	"github.com/gin-gonic/gin"
)

type cartItemRequest struct {
	ItemID string `json:"itemId"`
	Size   string `json:"size"`
}

type cartUpdateRequest struct {
	ItemID   string `json:"itemId"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

type wishlistRequest struct {
	ItemID string `json:"itemId"`
}

// @Summary   Add one unit of a product size to the cart
// @Tags      cart
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  cartItemRequest  true  "item"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/cart/add [post]
func (g *Gateway) addToCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart, err := g.services.Carts.AddItem(c.Request.Context(), accountID(c), req.ItemID, req.Size)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Added To Cart", "cartData": cart})
}

// @Summary   Set the quantity of a cart entry; zero removes it
// @Tags      cart
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  cartUpdateRequest  true  "entry"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/cart/update [post]
func (g *Gateway) updateCart(c *gin.Context) {
	var req cartUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart, err := g.services.Carts.SetItemQuantity(c.Request.Context(), accountID(c), req.ItemID, req.Size, req.Quantity)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Cart Updated", "cartData": cart})
}

// @Summary   Current cart
// @Tags      cart
// @Produce   json
// @Security  Bearer
// @Success   200  {object}  map[string]interface{}
// @Router    /api/cart [get]
func (g *Gateway) getCart(c *gin.Context) {
	cart, err := g.services.Carts.GetCart(c.Request.Context(), accountID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"cartData": cart})
}

// @Summary   Add a product to the wishlist
// @Tags      wishlist
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  wishlistRequest  true  "item"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/wishlist/add [post]
func (g *Gateway) addToWishlist(c *gin.Context) {
	var req wishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, err := g.services.Wishlist.Add(c.Request.Context(), accountID(c), req.ItemID)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Added To Wishlist", "wishlistData": list})
}

// @Summary   Remove a product from the wishlist
// @Tags      wishlist
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  wishlistRequest  true  "item"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/wishlist/remove [post]
func (g *Gateway) removeFromWishlist(c *gin.Context) {
	var req wishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, err := g.services.Wishlist.Remove(c.Request.Context(), accountID(c), req.ItemID)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Removed From Wishlist", "wishlistData": list})
}

// @Summary   Current wishlist
// @Tags      wishlist
// @Produce   json
// @Security  Bearer
// @Success   200  {object}  map[string]interface{}
// @Router    /api/wishlist [get]
func (g *Gateway) getWishlist(c *gin.Context) {
	list, err := g.services.Wishlist.Get(c.Request.Context(), accountID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"wishlistData": list})
}
