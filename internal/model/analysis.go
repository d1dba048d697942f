package model

// Analysis is the payment plan returned by POST /analysis. Field names follow the
// remote service's wire format.
type Analysis struct {
	Message  string      `json:"message"`
	Profile  PlanProfile `json:"perfil"`
	Feedback string      `json:"retroalimentacion"`
	Cards    []CardPlan  `json:"detalle_tarjetas"`
}

// PlanProfile summarizes the budget side of an analysis. Amounts are preformatted
// strings as sent by the service.
type PlanProfile struct {
	User              string `json:"usuario"`
	MonthlyBudget     string `json:"presupuesto_mensual_total"`
	ReserveTarget     string `json:"reserva_objetivo"`
	AssignableBudget  string `json:"presupuesto_asignable"`
	TotalPayments     string `json:"pagos_totales"`
	ReserveSaved      string `json:"reserva_guardada_real"`
	EstimatedInterest string `json:"interes_estimado_ciclo"`
}

// CardPlan is the recommended payment for one card.
type CardPlan struct {
	CardName          string  `json:"tarjeta"`
	Bank              string  `json:"banco"`
	CardID            int     `json:"id_tdc"`
	Payment           float64 `json:"pago"`
	InterestGenerated float64 `json:"interes_generado"`
	NoInterestPayment float64 `json:"pni"`
	TotalBalance      float64 `json:"saldo_total"`
	CreditLimit       float64 `json:"limite_credito"`
	UtilizationBefore string  `json:"utilizacion_inicial"`
	UtilizationAfter  string  `json:"utilizacion_post"`
}
