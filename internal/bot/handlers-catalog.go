package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// CATALOG NAVIGATION
//
// Pages are 1-based, offset = (page-1)*pageSize. Category and subcategory
// listings decide hasNext by comparing the returned count to the page size:
// a last exactly-full page still shows the forward button and leads to an
// empty page. Product listings use a real count query instead.

func (b *Bot) handleCategoriesPage(ctx context.Context, userID int64, page int) {
	if page < 1 {
		page = 1
	}

	b.screens.Clear(userID)

	offset := (page - 1) * b.cfg.CategoriesPerPage
	categories, err := b.storage.Categories(ctx, b.cfg.CategoriesPerPage, offset)
	if err != nil {
		b.logger.Error("Failed to get categories",
			zap.Int64("user_id", userID),
			zap.Error(err))
		b.sendError(userID, "Не удалось загрузить каталог, попробуй ещё раз.")
		return
	}

	if len(categories) == 0 {
		b.sendScreen(userID, "❌ В каталоге пока нет категорий.", createMainMenuOnlyKeyboard())
		return
	}

	hasNext := len(categories) == b.cfg.CategoriesPerPage
	b.sendScreen(userID, "Выбери категорию товаров 👇", createCategoriesKeyboard(categories, page, hasNext))
}

func (b *Bot) handleSubcategoriesPage(ctx context.Context, userID, categoryID int64, page int) {
	if page < 1 {
		page = 1
	}

	b.screens.Clear(userID)

	offset := (page - 1) * b.cfg.SubcategoriesPerPage
	subcategories, err := b.storage.Subcategories(ctx, categoryID, b.cfg.SubcategoriesPerPage, offset)
	if err != nil {
		b.logger.Error("Failed to get subcategories",
			zap.Int64("user_id", userID),
			zap.Int64("category_id", categoryID),
			zap.Error(err))
		b.sendError(userID, "Не удалось загрузить подкатегории, попробуй ещё раз.")
		return
	}

	if len(subcategories) == 0 {
		b.sendScreen(userID, "❌ Нет подкатегорий в этой категории.", createMainMenuOnlyKeyboard())
		return
	}

	hasNext := len(subcategories) == b.cfg.SubcategoriesPerPage
	b.sendScreen(userID, "Выбери подкатегорию 👇", createSubcategoriesKeyboard(subcategories, categoryID, page, hasNext))
}

func (b *Bot) handleProductsPage(ctx context.Context, userID, subcategoryID int64, page int) {
	if page < 1 {
		page = 1
	}

	b.screens.Clear(userID)

	total, err := b.storage.CountProducts(ctx, subcategoryID)
	if err != nil {
		b.logger.Error("Failed to count products",
			zap.Int64("user_id", userID),
			zap.Int64("subcategory_id", subcategoryID),
			zap.Error(err))
		b.sendError(userID, "Не удалось загрузить товары, попробуй ещё раз.")
		return
	}

	offset := (page - 1) * b.cfg.ProductsPerPage
	products, err := b.storage.Products(ctx, subcategoryID, b.cfg.ProductsPerPage, offset)
	if err != nil {
		b.logger.Error("Failed to get products",
			zap.Int64("user_id", userID),
			zap.Int64("subcategory_id", subcategoryID),
			zap.Error(err))
		b.sendError(userID, "Не удалось загрузить товары, попробуй ещё раз.")
		return
	}

	if len(products) == 0 {
		b.sendScreen(userID, "❌ Нет товаров в этой подкатегории.", createMainMenuOnlyKeyboard())
		return
	}

	for _, product := range products {
		caption := fmt.Sprintf("*%s*\n\n%s\n\nЦена: %.2f ₽", product.Name, product.Description, product.Price)
		b.sendPhotoScreen(userID, product.Image, caption, createProductKeyboard(product))
	}

	hasNext := offset+b.cfg.ProductsPerPage < total
	totalPages := (total + b.cfg.ProductsPerPage - 1) / b.cfg.ProductsPerPage
	navText := fmt.Sprintf("Всего товаров в подкатегории: %d\nСтраница %d из %d", total, page, totalPages)

	b.sendScreen(userID, navText, createProductNavKeyboard(subcategoryID, page, hasNext))
}
