package bot

// Callback actions.
const (
	cbStart       = "start"
	cbViewCart    = "view_cart"
	cbConfirmCart = "confirm_cart"
	cbCheckout    = "checkout"
)

// Parameterized callback prefixes. The _page_ prefixes must be matched
// before their bare counterparts.
const (
	prefixCatalogPage     = "catalog_page_"
	prefixCategory        = "category_"
	prefixSubcategoryPage = "subcategory_page_"
	prefixSubcategory     = "subcategory_"
	prefixProductPage     = "product_page_"
	prefixAddToCart       = "add_to_cart_"
	prefixRemove          = "remove_"
	prefixUpdate          = "update_"
)
