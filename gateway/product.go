package gateway

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
)

type productIDRequest struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
}

func (r productIDRequest) id() string {
	if r.ID != "" {
		return r.ID
	}
	return r.ProductID
}

var imageFields = []string{"image1", "image2", "image3", "image4"}

// parseSizes accepts a JSON array or a comma separated list.
func parseSizes(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var sizes []string
		if err := json.Unmarshal([]byte(raw), &sizes); err != nil {
			return nil, fmt.Errorf("sizes: %w", err)
		}
		return sizes, nil
	}
	var sizes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sizes = append(sizes, s)
		}
	}
	return sizes, nil
}

// @Summary   Add a product with up to four images (admin)
// @Tags      product
// @Accept    multipart/form-data
// @Produce   json
// @Security  Bearer
// @Param     name         formData  string  true   "name"
// @Param     description  formData  string  false  "description"
// @Param     price        formData  number  true   "price"
// @Param     category     formData  string  true   "category"
// @Param     subCategory  formData  string  false  "sub category"
// @Param     sizes        formData  string  true   "JSON array of sizes"
// @Param     bestseller   formData  bool    false  "bestseller"
// @Param     newArrival   formData  bool    false  "new arrival"
// @Param     image1       formData  file    false  "image"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/product/add [post]
func (g *Gateway) addProduct(c *gin.Context) {
	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil {
		badRequest(c, fmt.Errorf("price: %w", err))
		return
	}
	sizes, err := parseSizes(c.PostForm("sizes"))
	if err != nil {
		badRequest(c, err)
		return
	}

	input := service.AddProductInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       price,
		Category:    c.PostForm("category"),
		SubCategory: c.PostForm("subCategory"),
		Sizes:       sizes,
		Bestseller:  c.PostForm("bestseller") == "true",
		NewArrival:  c.PostForm("newArrival") == "true",
	}

	for _, field := range imageFields {
		header, err := c.FormFile(field)
		if err != nil {
			continue
		}
		file, err := header.Open()
		if err != nil {
			badRequest(c, fmt.Errorf("%s: %w", field, err))
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(file)

		input.Images = append(input.Images, service.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		})
	}

	product, err := g.services.Products.AddProduct(c.Request.Context(), input)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Product Added", "product": product})
}

// @Summary   Remove a product (admin)
// @Tags      product
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  productIDRequest  true  "product"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/product/remove [post]
func (g *Gateway) removeProduct(c *gin.Context) {
	var req productIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := g.services.Products.RemoveProduct(c.Request.Context(), req.id()); err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Product Removed"})
}

// @Summary  Catalog
// @Tags     product
// @Produce  json
// @Success  200  {object}  map[string]interface{}
// @Router   /api/product/list [get]
func (g *Gateway) listProducts(c *gin.Context) {
	products, err := g.services.Products.ListProducts(c.Request.Context())
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"products": products})
}

// @Summary  One product
// @Tags     product
// @Accept   json
// @Produce  json
// @Param    body  body  productIDRequest  true  "product"
// @Success  200  {object}  map[string]interface{}
// @Failure  404  {object}  map[string]interface{}
// @Router   /api/product/single [post]
func (g *Gateway) singleProduct(c *gin.Context) {
	var req productIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := g.services.Products.GetProduct(c.Request.Context(), req.id())
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"product": product})
}
