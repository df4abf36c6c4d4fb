package competitor

import (
	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/pkg/overpass"
)

// osmFilters maps a business type onto the OSM tags of its competitors.
var osmFilters = map[model.BusinessType][]overpass.TagFilter{
	model.BusinessCafe: {
		{Key: "amenity", Values: []string{"cafe"}},
	},
	model.BusinessGym: {
		{Key: "leisure", Values: []string{"fitness_centre"}},
		{Key: "amenity", Values: []string{"gym"}},
	},
	model.BusinessRestaurant: {
		{Key: "amenity", Values: []string{"restaurant", "fast_food"}},
	},
	model.BusinessHostelMess: {
		{Key: "amenity", Values: []string{"restaurant", "canteen", "food_court"}},
	},
	model.BusinessStationery: {
		{Key: "shop", Values: []string{"stationery", "copyshop"}},
	},
	model.BusinessRetail: {
		{Key: "shop", Values: []string{"general", "convenience", "variety_store"}},
	},
	model.BusinessPharmacy: {
		{Key: "amenity", Values: []string{"pharmacy"}},
		{Key: "shop", Values: []string{"chemist"}},
	},
	model.BusinessBeautySalon: {
		{Key: "shop", Values: []string{"beauty", "hairdresser"}},
	},
	model.BusinessOther: {
		{Key: "shop"},
	},
}

// placeTypes maps a business type onto Places API (New) primary types.
var placeTypes = map[model.BusinessType][]string{
	model.BusinessCafe:        {"cafe", "coffee_shop"},
	model.BusinessGym:         {"gym", "fitness_center"},
	model.BusinessRestaurant:  {"restaurant", "fast_food_restaurant"},
	model.BusinessHostelMess:  {"restaurant", "meal_takeaway"},
	model.BusinessStationery:  {"book_store", "store"},
	model.BusinessRetail:      {"convenience_store", "department_store", "supermarket"},
	model.BusinessPharmacy:    {"pharmacy", "drugstore"},
	model.BusinessBeautySalon: {"beauty_salon", "hair_salon", "hair_care"},
	model.BusinessOther:       {"store"},
}

// OSMFilters returns the tag filters for category, falling back to any shop.
func OSMFilters(category string) []overpass.TagFilter {
	if f, ok := osmFilters[model.ParseBusinessType(category)]; ok {
		return f
	}
	return osmFilters[model.BusinessOther]
}

// PlaceTypes returns the Places types for category.
func PlaceTypes(category string) []string {
	if t, ok := placeTypes[model.ParseBusinessType(category)]; ok {
		return t
	}
	return placeTypes[model.BusinessOther]
}
