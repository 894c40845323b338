package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tutorhive/handlers"
)

// Register wires every endpoint of the booking engine.
func Register(r *gin.Engine, booking *handlers.BookingHandler, tutor *handlers.TutorHandler, payment *handlers.PaymentHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", handlers.Health)

	// Gateway webhook lives outside /api: the gateway is configured with
	// this exact path.
	r.POST("/webhook/gateway", payment.GatewayWebhook)

	api := r.Group("/api")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", booking.CreateBooking)
			bookings.POST("/recurring", booking.CreateRecurring)
			bookings.POST("/:id/checkout", booking.RetryCheckout)
			bookings.PATCH("/:id/reschedule", booking.Reschedule)
			bookings.POST("/:id/complete", booking.Complete)
			bookings.POST("/:id/cancel", booking.Cancel)
			bookings.POST("/:id/dispute", booking.FileDispute)
			bookings.POST("/:id/dispute/resolve", booking.ResolveDispute)
		}

		tutors := api.Group("/tutors")
		{
			tutors.GET("/:id/availability", tutor.GetAvailability)
			tutors.PUT("/:id/availability", tutor.SetAvailability)
			tutors.GET("/:id/bookings", booking.ListTutorBookings)
		}

		api.GET("/students/:id/bookings", booking.ListStudentBookings)
	}
}
