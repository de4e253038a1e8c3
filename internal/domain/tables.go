package domain

var Tables = []interface{}{
	// Smart home
	&SmartHomePlatform{},
	&SmartDevice{},
	&SmartDeviceWidgetConfig{},
}
