package models

// GeoIDMapping maps the listing provider's geo ids to city names.
var GeoIDMapping = map[int64]string{
	10012684: "Львів",
	10006463: "Дніпро",
	10003908: "Вінниця",
	10007252: "Житомир",
	10007846: "Запоріжжя",
	10008717: "Івано-Франківськ",
	10016589: "Одеса",
	10009580: "Київ",
	514141:   "Київ (передмістя)",
	10011240: "Кропивницький",
	10012656: "Луцьк",
	10013982: "Миколаїв",
	10018885: "Полтава",
	10019894: "Рівне",
	10022820: "Суми",
	10023304: "Тернопіль",
	10023968: "Ужгород",
	10024345: "Харків",
	10024395: "Херсон",
	10024474: "Хмельницький",
	10025145: "Черкаси",
	10025207: "Чернівці",
	10025209: "Чернігів",
}

// CityName resolves a geo id to its display name.
func CityName(geoID int64) string {
	if name, ok := GeoIDMapping[geoID]; ok {
		return name
	}
	return "Невідомо"
}

// GeoIDByCityName is the reverse lookup, 0 when the city is unknown.
func GeoIDByCityName(name string) int64 {
	for id, city := range GeoIDMapping {
		if city == name {
			return id
		}
	}
	return 0
}
