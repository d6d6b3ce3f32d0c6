package taobao

import (
	"regexp"
	"strings"

	"github.com/use-agent/harvest/extract"
)

var domains = []string{
	"taobao.com",
	"tmall.com",
}

// itemIDPattern pulls the numeric item id out of detail links on any
// of Taobao's hosts.
var itemIDPattern = regexp.MustCompile(`(?:item\.taobao\.com|detail\.tmall\.com|item\.htm)[^"'\s]*?[?&]id=(\d+)`)

// nidPattern is the embedded-payload fallback: auction entries carry
// the id as "nid" even when the surrounding JSON is truncated.
var nidPattern = regexp.MustCompile(`"nid"\s*:\s*"(\d+)"`)

// searchListRules is the DOM table for search result pages, covering
// both the classic grid and the 2023+ card layout.
var searchListRules = extract.ListRules{
	Containers: []string{
		`div[class*="doubleCardWrapper"]`,
		`div[data-category="auctions"] .item`,
		`.m-itemlist .items .item`,
		`.grid-item`,
	},
	Name: []extract.Rule{
		{Selector: `div[class*="title"] span`},
		{Selector: ".title a"},
		{Selector: ".title"},
	},
	URL: []extract.Rule{
		{Selector: "a[href*='item']", Attr: "href"},
		{Selector: ".pic a", Attr: "href"},
		{Selector: "a", Attr: "href"},
	},
	Image: []extract.Rule{
		{Selector: "img[class*='mainPic']", Attr: "src"},
		{Selector: ".pic img", Attr: "data-src"},
		{Selector: ".pic img", Attr: "src"},
		{Selector: "img", Attr: "src"},
	},
	Price: []extract.Rule{
		{Selector: `div[class*="priceWrapper"]`},
		{Selector: ".price strong"},
		{Selector: ".price"},
	},
	Reviews: []extract.Rule{
		{Selector: `span[class*="realSales"]`},
		{Selector: ".deal-cnt"},
	},
	Brand: []extract.Rule{
		{Selector: `span[class*="shopName"]`},
		{Selector: ".shop .shopname"},
	},
}

// searchNetworkRules maps the mtop search API payloads; the item array
// travels under itemsArray or auctions depending on the endpoint
// generation.
var searchNetworkRules = extract.NetworkRules{
	ListKeys:    []string{"itemsArray", "auctions", "itemList", "items"},
	NameKeys:    []string{"title", "raw_title", "name"},
	URLKeys:     []string{"detail_url", "detailUrl", "auctionURL", "url"},
	IDKeys:      []string{"nid", "item_id", "itemId", "id"},
	PriceKeys:   []string{"view_price", "price", "priceShow.price", "realPrice"},
	ImageKeys:   []string{"pic_url", "pic_path", "picPath", "img"},
	RatingKeys:  []string{"goodRate", "rating"},
	ReviewsKeys: []string{"view_sales", "comment_count", "commentCount", "sold"},
	BrandKeys:   []string{"nick", "shopName", "brand"},
}

// searchScriptRules reads g_page_config, the global Taobao assigns its
// server-rendered search state to.
var searchScriptRules = extract.ScriptRules{
	Markers:   []string{"g_page_config", "g_srp_loadCss", "__INIT_DATA__"},
	IDPattern: nidPattern,
}

var harvestRules = extract.HarvestRules{
	LinkPattern: itemIDPattern,
}

// productRules is the detail-page table. Taobao's detail markup is the
// least stable surface of the site, hence the deep cascades.
var productRules = extract.ProductRules{
	Name: []extract.Rule{
		{Selector: "h1[class*='ItemTitle']"},
		{Selector: ".tb-main-title", Attr: "data-title"},
		{Selector: ".tb-main-title"},
		{Selector: "#J_Title h3"},
		{Selector: "h1"},
	},
	Price: []extract.Rule{
		{Selector: "span[class*='Price--priceText']"},
		{Selector: "#J_PromoPriceNum"},
		{Selector: ".tm-promo-price .tm-price"},
		{Selector: "#J_StrPrice .tb-rmb-num"},
		{Selector: ".tb-rmb-num"},
	},
	StrikePrice: []extract.Rule{
		{Selector: "span[class*='Price--originPrice']"},
		{Selector: "#J_StrPriceModBox .tb-rmb-num"},
		{Selector: ".tm-price-del"},
	},
	Byline: []extract.Rule{
		{Selector: "a[class*='ShopHeader--title']"},
		{Selector: ".tb-shop-name a"},
		{Selector: ".slogo-shopname strong"},
	},
	Description: []extract.Rule{
		{Selector: "#J_DivItemDesc"},
		{Selector: "div[class*='descV8']"},
		{Selector: "#description"},
	},
	Stock: []extract.Rule{
		{Selector: "#J_SpanStock"},
		{Selector: "span[class*='Stock']"},
	},
	Reviews: []extract.Rule{
		{Selector: "#J_RateCounter"},
		{Selector: "span[class*='salesDesc']"},
	},
	Images: []extract.ImageRule{
		{Selector: "#J_ImgBooth", Attrs: []string{"data-src", "src"}},
		{Selector: "img[class*='mainPic']", Attrs: []string{"src"}},
		{Selector: "#J_UlThumb img", Attrs: []string{"data-src", "src"}},
		{Selector: "ul[class*='thumbnails'] img", Attrs: []string{"src"}},
	},
	// Attribute rows use either the ASCII or the full-width colon
	// depending on page generation; a row only splits on the separator
	// it actually contains, so listing both is safe.
	Specs: []extract.SpecRule{
		{Rows: "#J_AttrUL li", InlineSep: ":"},
		{Rows: "#J_AttrUL li", InlineSep: "："},
		{Rows: "ul[class*='ItemAttribute'] li", InlineSep: ":"},
		{Rows: "ul[class*='ItemAttribute'] li", InlineSep: "："},
		{Rows: ".attributes-list li", InlineSep: ":"},
		{Rows: ".attributes-list li", InlineSep: "："},
	},
	OutOfStockMarkers: []string{"无货", "下架", "not available"},
	BrandSpecLabels:   []string{"品牌", "brand"},
	Platform:          platformName,
}

// isSearchAPI recognises the mtop endpoints that stream search items.
func isSearchAPI(url string) bool {
	lower := strings.ToLower(url)
	if !strings.Contains(lower, "taobao.com") && !strings.Contains(lower, "tmall.com") {
		return false
	}
	return strings.Contains(lower, "h5api.m.taobao.com") ||
		strings.Contains(lower, "mtop.relationrecommend") ||
		strings.Contains(lower, "/search")
}
