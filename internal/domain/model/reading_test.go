package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/parkprice/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEnums(t *testing.T) {
	Convey("Given the categorical enums", t, func() {
		Convey("Then known traffic levels are valid", func() {
			So(model.TrafficLow.Valid(), ShouldBeTrue)
			So(model.TrafficMedium.Valid(), ShouldBeTrue)
			So(model.TrafficHigh.Valid(), ShouldBeTrue)
			So(model.TrafficLevel("gridlock").Valid(), ShouldBeFalse)
			So(model.TrafficLevel("").Valid(), ShouldBeFalse)
		})

		Convey("Then known vehicle types are valid", func() {
			So(model.VehicleBike.Valid(), ShouldBeTrue)
			So(model.VehicleCar.Valid(), ShouldBeTrue)
			So(model.VehicleTruck.Valid(), ShouldBeTrue)
			So(model.VehicleType("Car").Valid(), ShouldBeFalse)
		})
	})
}

func TestOccupancyRate(t *testing.T) {
	Convey("Given a reading", t, func() {
		r := model.LotReading{Occupancy: 50, Capacity: 100}

		Convey("Then the rate is occupancy over capacity", func() {
			So(r.OccupancyRate(), ShouldEqual, 0.5)
		})

		Convey("And an over-full lot reports a rate above one", func() {
			r.Occupancy = 120
			So(r.OccupancyRate(), ShouldAlmostEqual, 1.2, 1e-9)
		})

		Convey("And a zero capacity yields zero instead of dividing", func() {
			r.Capacity = 0
			So(r.OccupancyRate(), ShouldEqual, 0)
		})
	})
}

func TestPriceUpdateJSON(t *testing.T) {
	Convey("Given a price update", t, func() {
		ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		u := model.NewPriceUpdate("lot-1", ts, model.PriceSet{Linear: 12.5, Demand: 11.88, Competitive: 12.88})

		Convey("Then it encodes exactly the five fields in order", func() {
			b, err := json.Marshal(u)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"lot_id":"lot-1","timestamp":"2024-03-01T08:00:00Z","linear_price":12.5,"demand_price":11.88,"competitive_price":12.88}`)
		})

		Convey("And Prices round-trips the triple", func() {
			So(u.Prices(), ShouldResemble, model.PriceSet{Linear: 12.5, Demand: 11.88, Competitive: 12.88})
		})
	})
}
