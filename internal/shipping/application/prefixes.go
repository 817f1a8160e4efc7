package application

// prefixRange maps a span of 3-digit postal prefixes to the city that owns
// it. Used when the postal lookup service cannot answer.
type prefixRange struct {
	from, to int
	city     string
	state    string
}

var prefixTable = []prefixRange{
	{from: 10, to: 59, city: "São Paulo", state: "SP"},
	{from: 130, to: 131, city: "Campinas", state: "SP"},
	{from: 200, to: 237, city: "Rio de Janeiro", state: "RJ"},
	{from: 240, to: 243, city: "Niterói", state: "RJ"},
	{from: 290, to: 290, city: "Vitória", state: "ES"},
	{from: 300, to: 319, city: "Belo Horizonte", state: "MG"},
	{from: 400, to: 419, city: "Salvador", state: "BA"},
	{from: 490, to: 491, city: "Aracaju", state: "SE"},
	{from: 500, to: 529, city: "Recife", state: "PE"},
	{from: 570, to: 571, city: "Maceió", state: "AL"},
	{from: 580, to: 580, city: "João Pessoa", state: "PB"},
	{from: 590, to: 591, city: "Natal", state: "RN"},
	{from: 600, to: 609, city: "Fortaleza", state: "CE"},
	{from: 640, to: 640, city: "Teresina", state: "PI"},
	{from: 650, to: 650, city: "São Luís", state: "MA"},
	{from: 660, to: 668, city: "Belém", state: "PA"},
	{from: 690, to: 691, city: "Manaus", state: "AM"},
	{from: 700, to: 727, city: "Brasília", state: "DF"},
	{from: 740, to: 748, city: "Goiânia", state: "GO"},
	{from: 780, to: 780, city: "Cuiabá", state: "MT"},
	{from: 790, to: 791, city: "Campo Grande", state: "MS"},
	{from: 800, to: 829, city: "Curitiba", state: "PR"},
	{from: 880, to: 880, city: "Florianópolis", state: "SC"},
	{from: 900, to: 919, city: "Porto Alegre", state: "RS"},
}

func lookupPrefix(prefix int) (prefixRange, bool) {
	for _, p := range prefixTable {
		if prefix >= p.from && prefix <= p.to {
			return p, true
		}
	}
	return prefixRange{}, false
}
