package analytics

// isoByName is the ISO 3166-1 english short name -> alpha-3 table used for
// the first, exact resolution step.
var isoByName = map[string]string{
	"Afghanistan":           "AFG",
	"Albania":               "ALB",
	"Algeria":               "DZA",
	"Argentina":             "ARG",
	"Armenia":               "ARM",
	"Australia":             "AUS",
	"Austria":               "AUT",
	"Azerbaijan":            "AZE",
	"Bangladesh":            "BGD",
	"Belarus":               "BLR",
	"Belgium":               "BEL",
	"Bosnia and Herzegovina": "BIH",
	"Brazil":                "BRA",
	"Bulgaria":              "BGR",
	"Cambodia":              "KHM",
	"Canada":                "CAN",
	"Chile":                 "CHL",
	"China":                 "CHN",
	"Colombia":              "COL",
	"Costa Rica":            "CRI",
	"Croatia":               "HRV",
	"Cuba":                  "CUB",
	"Cyprus":                "CYP",
	"Denmark":               "DNK",
	"Ecuador":               "ECU",
	"Egypt":                 "EGY",
	"Estonia":               "EST",
	"Ethiopia":              "ETH",
	"Finland":               "FIN",
	"France":                "FRA",
	"Georgia":               "GEO",
	"Germany":               "DEU",
	"Ghana":                 "GHA",
	"Greece":                "GRC",
	"Hungary":               "HUN",
	"Iceland":               "ISL",
	"India":                 "IND",
	"Indonesia":             "IDN",
	"Iraq":                  "IRQ",
	"Ireland":               "IRL",
	"Israel":                "ISR",
	"Italy":                 "ITA",
	"Japan":                 "JPN",
	"Jordan":                "JOR",
	"Kazakhstan":            "KAZ",
	"Kenya":                 "KEN",
	"Kuwait":                "KWT",
	"Latvia":                "LVA",
	"Lebanon":               "LBN",
	"Lithuania":             "LTU",
	"Luxembourg":            "LUX",
	"Malaysia":              "MYS",
	"Malta":                 "MLT",
	"Mexico":                "MEX",
	"Mongolia":              "MNG",
	"Morocco":               "MAR",
	"Nepal":                 "NPL",
	"Netherlands":           "NLD",
	"New Zealand":           "NZL",
	"Nigeria":               "NGA",
	"North Macedonia":       "MKD",
	"Norway":                "NOR",
	"Pakistan":              "PAK",
	"Panama":                "PAN",
	"Paraguay":              "PRY",
	"Peru":                  "PER",
	"Philippines":           "PHL",
	"Poland":                "POL",
	"Portugal":              "PRT",
	"Qatar":                 "QAT",
	"Romania":               "ROU",
	"Saudi Arabia":          "SAU",
	"Senegal":               "SEN",
	"Serbia":                "SRB",
	"Singapore":             "SGP",
	"Slovakia":              "SVK",
	"Slovenia":              "SVN",
	"South Africa":          "ZAF",
	"Spain":                 "ESP",
	"Sri Lanka":             "LKA",
	"Sweden":                "SWE",
	"Switzerland":           "CHE",
	"Thailand":              "THA",
	"Tunisia":               "TUN",
	"Turkey":                "TUR",
	"Ukraine":               "UKR",
	"United Arab Emirates":  "ARE",
	"United Kingdom":        "GBR",
	"United States":         "USA",
	"Uruguay":               "URY",
	"Uzbekistan":            "UZB",
	"Zimbabwe":              "ZWE",
}

// nameFallback catches the spellings geo databases emit that the ISO short
// name table does not carry.
var nameFallback = map[string]string{
	"Bolivia":                          "BOL",
	"Czechia":                          "CZE",
	"Czech Republic":                   "CZE",
	"Iran":                             "IRN",
	"Moldova":                          "MDA",
	"Russia":                           "RUS",
	"Russian Federation":               "RUS",
	"South Korea":                      "KOR",
	"Republic of Korea":                "KOR",
	"Syria":                            "SYR",
	"Taiwan":                           "TWN",
	"Tanzania":                         "TZA",
	"The Netherlands":                  "NLD",
	"Türkiye":                          "TUR",
	"United States of America":         "USA",
	"Venezuela":                        "VEN",
	"Vietnam":                          "VNM",
	"Viet Nam":                         "VNM",
	"Hong Kong":                        "HKG",
	"Macao":                            "MAC",
	"Palestine":                        "PSE",
	"Kosovo":                           "XKX",
	"Democratic Republic of the Congo": "COD",
}

// localeToCode resolves browser locales when the geo lookup yielded nothing.
// Keys are lowercase: full tags first, bare languages as the prefix step.
var localeToCode = map[string]string{
	"de-at": "AUT",
	"de-ch": "CHE",
	"de-de": "DEU",
	"de-li": "LIE",
	"de-lu": "LUX",
	"en-au": "AUS",
	"en-ca": "CAN",
	"en-gb": "GBR",
	"en-ie": "IRL",
	"en-in": "IND",
	"en-nz": "NZL",
	"en-us": "USA",
	"en-za": "ZAF",
	"es-ar": "ARG",
	"es-cl": "CHL",
	"es-co": "COL",
	"es-es": "ESP",
	"es-mx": "MEX",
	"fr-be": "BEL",
	"fr-ca": "CAN",
	"fr-ch": "CHE",
	"fr-fr": "FRA",
	"it-ch": "CHE",
	"it-it": "ITA",
	"nl-be": "BEL",
	"nl-nl": "NLD",
	"pt-br": "BRA",
	"pt-pt": "PRT",
	"sv-fi": "FIN",
	"sv-se": "SWE",
	"zh-cn": "CHN",
	"zh-hk": "HKG",
	"zh-tw": "TWN",

	"ar": "SAU",
	"cs": "CZE",
	"da": "DNK",
	"de": "DEU",
	"el": "GRC",
	"en": "USA",
	"es": "ESP",
	"fi": "FIN",
	"fr": "FRA",
	"he": "ISR",
	"hi": "IND",
	"hu": "HUN",
	"id": "IDN",
	"it": "ITA",
	"ja": "JPN",
	"ko": "KOR",
	"nb": "NOR",
	"nl": "NLD",
	"pl": "POL",
	"pt": "PRT",
	"ro": "ROU",
	"ru": "RUS",
	"sk": "SVK",
	"sv": "SWE",
	"th": "THA",
	"tr": "TUR",
	"uk": "UKR",
	"vi": "VNM",
	"zh": "CHN",
}
