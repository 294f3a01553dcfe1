// internal/workers/infrastructure/build-response/models.go
package buildresponse

const (
	NoItemsMessage = "Sorry, I couldn't find any items matching your request."

	identificationTitle = "Plant identified:"
	diagnosisTitle      = "The diagnosis is:"
	solutionsTitle      = "The recommended solutions are:"
)

// Field maps a provider key (dots address nested objects) to its label.
type Field struct {
	Key   string
	Label string
}

// IdentificationFields is the fixed display order for identification results.
var IdentificationFields = []Field{
	{Key: "name", Label: "Name"},
	{Key: "hardiness", Label: "Hardiness"},
	{Key: "hardiness_zones", Label: "Hardiness Zones"},
	{Key: "soil", Label: "Soil"},
	{Key: "sunlight", Label: "Sunlight"},
	{Key: "difficulty", Label: "Difficulty"},
	{Key: "planting_time", Label: "Planting Time"},
	{Key: "fertilization", Label: "Fertilization"},
	{Key: "pruning", Label: "Pruning"},
	{Key: "watering", Label: "Watering"},
	{Key: "plant_type", Label: "Plant Type"},
	{Key: "animal_resistance", Label: "Animal Resistance"},
	{Key: "average_size", Label: "Average Size"},
	{Key: "growth_rate", Label: "Growth Rate"},
	{Key: "pet_warning", Label: "Pet Warning"},
	{Key: "common_name", Label: "Common Name"},
	{Key: "bloom_season", Label: "Bloom Season"},
}
