package server

import "github.com/tournevent/tradepost/pkg/shipping"

func addressToModel(a addressRequest) shipping.Address {
	return shipping.Address{
		Name:    a.Name,
		Street1: a.Street1,
		Street2: a.Street2,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
		Phone:   a.Phone,
		Email:   a.Email,
	}
}

func parcelToModel(p parcelRequest) shipping.Parcel {
	return shipping.Parcel{
		Length:       p.Length,
		Width:        p.Width,
		Height:       p.Height,
		Weight:       p.Weight,
		DistanceUnit: shipping.DistanceUnit(p.DistanceUnit),
		MassUnit:     shipping.MassUnit(p.MassUnit),
	}
}

func (r *ratesRequest) toModel() *shipping.RateRequest {
	return &shipping.RateRequest{
		Origin:      addressToModel(r.Origin),
		Destination: addressToModel(r.Destination),
		Parcel:      parcelToModel(r.Parcel),
	}
}

func (r *labelRequest) toModel() *shipping.LabelRequest {
	return &shipping.LabelRequest{
		TradeID:          r.TradeID,
		Origin:           addressToModel(r.Origin),
		Destination:      addressToModel(r.Destination),
		Parcel:           parcelToModel(r.Parcel),
		IncludeInsurance: r.IncludeInsurance,
		InsuranceAmount:  r.InsuranceAmount,
		ServiceLevel:     r.ServiceLevel,
	}
}

func toRatesResponse(q *shipping.Quote) ratesResponse {
	rates := make([]rateResponse, len(q.Rates))
	for i, r := range q.Rates {
		rates[i] = rateResponse{
			ID:                r.ID,
			Amount:            r.Amount.InexactFloat64(),
			Currency:          r.Currency,
			Provider:          r.Provider,
			ServiceLevelName:  r.ServiceLevelName,
			ServiceLevelToken: r.ServiceLevelToken,
			EstimatedDays:     r.EstimatedDays,
			DurationTerms:     r.DurationTerms,
		}
	}
	return ratesResponse{Rates: rates, ShipmentID: q.ShipmentID}
}

func toLabelResponse(l *shipping.LabelResult) labelResponse {
	return labelResponse{
		TransactionID:        l.TransactionID,
		ObjectState:          l.ObjectState,
		LabelURL:             l.LabelURL,
		TrackingNumber:       l.TrackingNumber,
		Carrier:              l.Carrier,
		ServiceLevel:         l.ServiceLevel,
		Cost:                 l.Cost,
		Currency:             l.Currency,
		CommercialInvoiceURL: l.CommercialInvoiceURL,
	}
}

func toTrackingResponse(t *shipping.TrackingInfo) trackingResponse {
	events := make([]trackingEventResponse, len(t.Events))
	for i, e := range t.Events {
		events[i] = trackingEventResponse{
			Status:        e.Status,
			StatusDetails: e.StatusDetails,
			Location:      e.Location,
			Timestamp:     e.Timestamp,
		}
	}
	return trackingResponse{
		Carrier:        t.Carrier,
		TrackingNumber: t.TrackingNumber,
		Status:         t.Status,
		Events:         events,
		ETA:            t.ETA,
	}
}

func toLabelListResponse(recs []shipping.LabelRecord) labelListResponse {
	labels := make([]labelRecordResponse, len(recs))
	for i, r := range recs {
		labels[i] = labelRecordResponse{
			TradeID:        r.TradeID,
			CallerID:       r.CallerID,
			TransactionID:  r.TransactionID,
			TrackingNumber: r.TrackingNumber,
			Carrier:        r.Carrier,
			ServiceLevel:   r.ServiceLevel,
			Cost:           r.Cost,
			Currency:       r.Currency,
			LabelURL:       r.LabelURL,
			CreatedAt:      r.CreatedAt,
		}
	}
	return labelListResponse{Labels: labels}
}
